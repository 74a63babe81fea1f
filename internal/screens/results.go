package screens

import (
	"image"
	"slices"
	"sync"

	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

var (
	speedRegion       = pixel.Rect(37, 28, 99, 26)
	saturationColumn  = pixel.Rect(320, 70, 1, 600)
	racePointsByPlace = [ScoreboardRows]int{15, 12, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
)

// Points returns the points awarded for a 1-based finishing position.
func Points(position int) int {
	if position < 1 || position > ScoreboardRows {
		return 0
	}
	return racePointsByPlace[position-1]
}

// CompareRaceResult accepts split-screen frames with a bright scoreboard header.
func (d *Detector) CompareRaceResult(frame image.Image) bool {
	if !IsSplitScreen(frame) {
		return false
	}
	w := frame.Bounds().Dx()
	return pixel.LightnessAt(frame, w/2-1, ScoreboardTopMargin) > ScoreboardMinLightness
}

// ProcessRaceResult reads seat colors down the scoreboard's center line.
func (d *Detector) ProcessRaceResult(frame image.Image) (Screen, bool) {
	if saturatedPixels(frame, saturationColumn) > ScoreboardMaxSaturated {
		return nil, false
	}

	w := frame.Bounds().Dx()
	players := collectRows(func(i int) (RaceResultPlayer, bool) {
		offset := ScoreboardRowInset + i*(ScoreboardRowHeight+ScoreboardRowMargin)
		c := pixel.Average(frame, pixel.Rect(w/2-1, ScoreboardTopMargin+offset, 2, 2))
		seat, ok := pixel.Seat(c, pixel.AccentThreshold)
		if !ok {
			return RaceResultPlayer{}, false
		}
		return RaceResultPlayer{Index: seat, Position: i + 1, Points: Points(i + 1)}, true
	})
	slices.SortStableFunc(players, func(a, b RaceResultPlayer) int { return a.Index - b.Index })

	return RaceResult{Players: players}, true
}

func saturatedPixels(frame image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := pixel.Average(frame, pixel.Rect(x, y, 1, 1))
			if pixel.MostlyRed(c) || pixel.MostlyGreen(c) || pixel.MostlyBlue(c) {
				n++
			}
		}
	}
	return n
}

// CompareMatchResult accepts frames showing a known speed-class banner.
func (d *Detector) CompareMatchResult(frame image.Image) bool {
	_, ok := d.raceSpeed(frame)
	return ok
}

// ProcessMatchResult reads each standings row's seat color and score.
func (d *Detector) ProcessMatchResult(frame image.Image) (Screen, bool) {
	players := collectRows(func(i int) (MatchResultPlayer, bool) {
		top := StandingsTop + i*(StandingsRowHeight+StandingsRowMargin)
		c := pixel.Average(frame, pixel.Rect(StandingsColorX, top, 1, StandingsColorH))
		seat, ok := pixel.Seat(c, StandingsColorFloor)
		if !ok {
			return MatchResultPlayer{}, false
		}
		section := pixel.Binarize(frame, pixel.Rect(StandingsScoreX, top, StandingsScoreW, StandingsRowHeight), ScoreBinarizeCutoff)
		p := MatchResultPlayer{Index: seat, Position: i + 1}
		if score, ok := decodeScore(section); ok {
			p.Score = &score
		}
		return p, true
	})
	slices.SortStableFunc(players, func(a, b MatchResultPlayer) int { return a.Index - b.Index })

	res := MatchResult{Players: players}
	if speed, ok := d.raceSpeed(frame); ok {
		res.Speed = &speed
	}
	return res, true
}

func (d *Detector) raceSpeed(frame image.Image) (int, bool) {
	h, ok := regionHash(frame, speedRegion)
	if !ok {
		return 0, false
	}
	switch {
	case d.refs.MatchResult.Speed200.Matches(h):
		return 200, true
	case d.refs.MatchResult.Speed150.Matches(h):
		return 150, true
	default:
		return 0, false
	}
}

// collectRows reads all scoreboard rows concurrently and keeps row order.
func collectRows[T any](read func(i int) (T, bool)) []T {
	type row struct {
		v  T
		ok bool
	}
	rows := make([]row, ScoreboardRows)

	var wg sync.WaitGroup
	for i := range ScoreboardRows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := read(i)
			rows[i] = row{v, ok}
		}()
	}
	wg.Wait()

	out := make([]T, 0, SeatCount)
	for _, r := range rows {
		if r.ok {
			out = append(out, r.v)
		}
	}
	return out
}
