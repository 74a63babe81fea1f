package screens

import (
	"image"
	"slices"
	"sync"

	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

// Per-seat HUD anchors, indexed by seat: top-left, top-right, bottom-left,
// bottom-right quadrant.
var (
	positionAnchors = [SeatCount]image.Point{{57, 239}, {1167, 239}, {57, 599}, {1167, 599}}
	lapFlagAnchors  = [SeatCount]image.Point{{114, 317}, {1178, 317}, {114, 677}, {1178, 677}}
	finishAnchors   = [SeatCount]image.Point{{159, 127}, {799, 127}, {159, 487}, {799, 487}}
	itemAnchors     = [SeatCount]image.Point{{99, 62}, {1140, 62}, {99, 422}, {1140, 422}}
	accentAnchors   = [SeatCount]image.Point{{112, 40}, {1154, 40}, {112, 400}, {1154, 400}}

	positionSize = image.Pt(36, 54)
	lapFlagSize  = image.Pt(11, 11)
	finishSize   = image.Pt(38, 38)
	itemSize     = image.Pt(41, 41)
	accentSize   = image.Pt(10, 2)

	goRegion = pixel.Rect(573, 292, 39, 37)
)

func seatRegion(anchor, size image.Point) image.Rectangle {
	return image.Rectangle{Min: anchor, Max: anchor.Add(size)}
}

// CompareRace accepts split-screen frames whose center column is dark.
func (d *Detector) CompareRace(frame image.Image) bool {
	if !IsSplitScreen(frame) {
		return false
	}
	w := frame.Bounds().Dx()
	return pixel.OverallAverage(frame, pixel.Rect(w/2-1, 48, 1, 8)) < RaceCenterMaxBrightness
}

// ProcessRace reads every seat concurrently. A frame with no occupied seat
// yields no screen at all.
func (d *Detector) ProcessRace(frame image.Image) (Screen, bool) {
	seats := make([]*Player, SeatCount)

	var wg sync.WaitGroup
	for i := range SeatCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seats[i] = d.readSeat(frame, i)
		}()
	}
	starting := regionMatches(d.refs.Race.Go, frame, goRegion)
	wg.Wait()

	players := make([]Player, 0, SeatCount)
	for _, p := range seats {
		if p != nil {
			players = append(players, *p)
		}
	}
	if len(players) == 0 {
		return nil, false
	}
	slices.SortFunc(players, func(a, b Player) int { return a.Index - b.Index })

	return Race{Players: players, Starting: starting}, true
}

// readSeat returns nil when the seat has no lap flag.
func (d *Detector) readSeat(frame image.Image, seat int) *Player {
	race := &d.refs.Race
	if !regionMatches(race.LapFlag, frame, seatRegion(lapFlagAnchors[seat], lapFlagSize)) {
		return nil
	}

	p := &Player{Index: seat, Status: Racing}

	if h, ok := hashGray(frame, seatRegion(positionAnchors[seat], positionSize)); ok {
		if m, found := race.Positions.Match(h); found {
			pos := m.Value
			p.Position = &pos
		}
	}

	if regionMatches(race.Finished, frame, seatRegion(finishAnchors[seat], finishSize)) {
		p.Status = Finished
	}

	if d.itemBoxVisible(frame, seat) {
		if h, ok := regionHash(frame, seatRegion(itemAnchors[seat], itemSize)); ok {
			if m, found := race.Items.Match(h); found {
				item := m.Value
				p.Item = &item
			}
		}
	}
	return p
}

// itemBoxVisible checks the seat's HUD accent color. The item box is only
// read when the seat's HUD is actually rendered.
func (d *Detector) itemBoxVisible(frame image.Image, seat int) bool {
	c := pixel.Average(frame, seatRegion(accentAnchors[seat], accentSize))
	return pixel.SeatAccent(seat, c, pixel.AccentThreshold)
}
