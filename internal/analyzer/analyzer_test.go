package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/hasher/hashertest"
	"github.com/GriffinCanCode/kartalytics/internal/pixel"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

var gray = color.RGBA{100, 100, 100, 255}

func frame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func withDividers(img *image.RGBA) *image.RGBA {
	black := &image.Uniform{C: color.RGBA{0, 0, 0, 255}}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	draw.Draw(img, image.Rect(w/2-1, 0, w/2+1, h), black, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, h/2-1, w, h/2+1), black, image.Point{}, draw.Src)
	return img
}

// farRefs returns references that nothing flat can match.
func farRefs() *screens.References {
	flat := hashertest.Hash(frame(16, 16, gray))
	far := goimagehash.NewImageHash(^flat.GetHash(), flat.GetKind())
	ref := func(threshold int) screens.Reference {
		return screens.Reference{Hashes: []*goimagehash.ImageHash{far}, Threshold: threshold}
	}
	return &screens.References{
		Race:            screens.RaceReferences{LapFlag: ref(20), Go: ref(15), Finished: ref(15)},
		Intro:           screens.IntroReferences{Title: ref(3)},
		MainMenu:        ref(10),
		Loading:         ref(5),
		SelectCharacter: ref(10),
		MatchResult:     screens.MatchResultReferences{Speed200: ref(10), Speed150: ref(10)},
	}
}

// ridge paints a gradient that rises across the top half of r and falls
// across the bottom half.
func ridge(img *image.RGBA, r image.Rectangle) {
	w := max(r.Dx()-1, 1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := 30 + (x-r.Min.X)*200/w
			if y-r.Min.Y >= r.Dy()/2 {
				v = 230 - (x-r.Min.X)*200/w
			}
			img.SetRGBA(x, y, color.RGBA{uint8(v), uint8(v), uint8(v), 255})
		}
	}
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type countingSink struct{ n int }

func (s *countingSink) Save(image.Image) (string, error) { s.n++; return "", nil }

func TestOrder(t *testing.T) {
	want := []screens.Kind{
		screens.KindRace,
		screens.KindMainMenu,
		screens.KindRaceResult,
		screens.KindSelectCharacter,
		screens.KindLoading,
		screens.KindIntro,
		screens.KindMatchResult,
	}
	if got := New(farRefs(), quiet()).Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Order() = %v, want %v", got, want)
	}
}

func TestClassifyUnknown(t *testing.T) {
	sink := &countingSink{}
	c := New(farRefs(), WithUnknownIntroSink(sink), quiet())

	got, ok := c.Classify(frame(screens.FrameWidth, screens.FrameHeight, gray))
	if !ok {
		t.Fatal("Classify returned no data")
	}
	if _, isUnknown := got.(screens.Unknown); !isUnknown {
		t.Errorf("Classify = %T, want Unknown", got)
	}
	if sink.n != 0 {
		t.Errorf("saved %d frames, want 0", sink.n)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	refs := farRefs()
	flat := hashertest.Hash(frame(16, 16, gray))
	refs.MainMenu = screens.Reference{Hashes: []*goimagehash.ImageHash{flat}, Threshold: 10, Inclusive: true}
	refs.Loading = screens.Reference{Hashes: []*goimagehash.ImageHash{flat}, Threshold: 5}
	c := New(refs, quiet())

	got, ok := c.Classify(frame(screens.FrameWidth, screens.FrameHeight, gray))
	if !ok || got.Kind() != screens.KindMainMenu {
		t.Errorf("Classify = (%v, %v), want main menu ahead of loading", got, ok)
	}
}

func TestClassifyDoesNotFallThrough(t *testing.T) {
	refs := farRefs()
	flat := hashertest.Hash(frame(16, 16, gray))
	refs.MainMenu = screens.Reference{Hashes: []*goimagehash.ImageHash{flat}, Threshold: 10, Inclusive: true}
	c := New(refs, quiet())

	img := withDividers(frame(screens.FrameWidth, screens.FrameHeight, gray))
	if !c.Detector().CompareRace(img) {
		t.Fatal("race comparator should accept a divided frame")
	}

	got, ok := c.Classify(img)
	if ok || got != nil {
		t.Errorf("Classify = (%v, %v), want (nil, false) without falling through to main menu", got, ok)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := New(farRefs(), WithUnknownIntroSink(screens.IntroArchive{Dir: dir}), quiet())
	img := withDividers(frame(screens.FrameWidth, screens.FrameHeight, gray))

	first, firstOK := c.Classify(img)
	for range 3 {
		got, ok := c.Classify(img)
		if ok != firstOK || !reflect.DeepEqual(got, first) {
			t.Fatalf("Classify = (%v, %v), want (%v, %v)", got, ok, first, firstOK)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("wrote %d files, want none", len(entries))
	}
}

func TestClassifyResizesLargeFrames(t *testing.T) {
	c := New(farRefs(), quiet())

	got, ok := c.Classify(frame(1920, 1080, gray))
	if !ok {
		t.Fatal("Classify returned no data")
	}
	if got.Kind() != screens.KindUnknown {
		t.Errorf("Classify = %v, want unknown", got.Kind())
	}
}

func TestNormalize(t *testing.T) {
	big := Normalize(frame(1920, 1080, gray))
	if got := big.Bounds(); got != image.Rect(0, 0, screens.FrameWidth, screens.FrameHeight) {
		t.Errorf("Normalize(1920x1080).Bounds() = %v", got)
	}
	if got := big.RGBAAt(640, 360); got != gray {
		t.Errorf("pixel = %v, want %v", got, gray)
	}

	src := frame(screens.FrameWidth+10, screens.FrameHeight+10, gray)
	src.SetRGBA(10, 10, color.RGBA{255, 0, 0, 255})
	sub := src.SubImage(image.Rect(10, 10, 10+screens.FrameWidth, 10+screens.FrameHeight))
	out := Normalize(sub)
	if out.Bounds().Min != (image.Point{}) {
		t.Errorf("Normalize did not re-anchor: %v", out.Bounds())
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel(0,0) = %v, want red", got)
	}

	same := frame(screens.FrameWidth, screens.FrameHeight, gray)
	if Normalize(same) != same {
		t.Error("Normalize should return canonical frames unchanged")
	}
}

// Seat 0 HUD and intro title card regions on a 1280x720 frame.
var (
	seat0LapFlag  = pixel.Rect(114, 317, 11, 11)
	seat0Position = pixel.Rect(57, 239, 36, 54)
	introTitle    = pixel.Rect(111, 589, 44, 37)
	introSpeed    = pixel.Rect(1130, 600, 10, 2)
	introVariant  = pixel.Rect(258, 638, 80, 18)
	introTrack    = pixel.Rect(338, 620, 350, 36)
)

func TestClassifyRace(t *testing.T) {
	img := withDividers(frame(screens.FrameWidth, screens.FrameHeight, gray))
	ridge(img, seat0LapFlag)
	ridge(img, seat0Position)

	lap := hashertest.Hash(pixel.Copy(img, seat0LapFlag))
	empty := hashertest.Hash(pixel.Copy(img, pixel.Rect(300, 100, 11, 11)))
	if d := hasher.Distance(lap, empty); d < 20 {
		t.Fatalf("lap flag pattern too close to flat region: distance %d", d)
	}

	refs := farRefs()
	refs.Race.LapFlag = screens.Reference{Hashes: []*goimagehash.ImageHash{lap}, Threshold: 20}
	refs.Race.Positions = hasher.Table[int]{Entries: []hasher.Entry[int]{{
		Value:     3,
		Hashes:    []*goimagehash.ImageHash{hashertest.Hash(pixel.Gray(img, seat0Position))},
		Threshold: 16,
	}}}
	c := New(refs, quiet())

	got, ok := c.Classify(img)
	if !ok {
		t.Fatal("Classify returned no data")
	}
	pos := 3
	want := screens.Race{Players: []screens.Player{{Index: 0, Position: &pos, Status: screens.Racing}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classify = %#v, want %#v", got, want)
	}
}

func TestClassifyIntro(t *testing.T) {
	img := frame(screens.FrameWidth, screens.FrameHeight, gray)
	ridge(img, introTitle)
	ridge(img, introVariant)
	ridge(img, introTrack)
	draw.Draw(img, introSpeed, &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	refs := farRefs()
	refs.Intro = screens.IntroReferences{
		Title: screens.Reference{
			Hashes:    []*goimagehash.ImageHash{hashertest.Hash(pixel.Copy(img, introTitle))},
			Threshold: 3,
			Inclusive: true,
		},
		Variants: []screens.VariantGroup{{
			Name:      "wii",
			Suffix:    " (Wii)",
			Reference: screens.Reference{Hashes: []*goimagehash.ImageHash{hashertest.Hash(screens.VariantImage(img))}, Threshold: 10},
			Tracks: hasher.Table[string]{Entries: []hasher.Entry[string]{{
				Value:     "Coconut Mall (Wii)",
				Hashes:    []*goimagehash.ImageHash{hashertest.Hash(screens.TrackImage(img))},
				Threshold: 10,
			}}},
		}},
	}
	sink := &countingSink{}
	c := New(refs, WithUnknownIntroSink(sink), quiet())

	got, ok := c.Classify(img)
	if !ok {
		t.Fatal("Classify returned no data")
	}
	if want := (screens.Intro{Course: "Coconut Mall (Wii)"}); got != want {
		t.Errorf("Classify = %#v, want %#v", got, want)
	}
	if sink.n != 0 {
		t.Errorf("saved %d frames for a resolved course, want 0", sink.n)
	}
}
