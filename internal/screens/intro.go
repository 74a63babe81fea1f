package screens

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

var (
	introTitleRegion   = pixel.Rect(111, 589, 44, 37)
	introSpeedRegion   = pixel.Rect(1130, 600, 10, 2)
	introVariantRegion = pixel.Rect(258, 638, 80, 18)
	introTrackRegion   = pixel.Rect(338, 620, 350, 36)
)

// CompareIntro matches the title card and then requires the speed-class
// indicator to be fully drawn, so half-rendered cards are skipped.
func (d *Detector) CompareIntro(frame image.Image) bool {
	if !regionMatches(d.refs.Intro.Title, frame, introTitleRegion) {
		return false
	}
	c := pixel.Average(frame, introSpeedRegion)
	return c[0] > IntroSpeedMinChannel && c[1] > IntroSpeedMinChannel && c[2] > IntroSpeedMinChannel
}

// ProcessIntro resolves the course. Unresolved frames are archived for
// labeling; archive failures never affect the result.
func (d *Detector) ProcessIntro(frame image.Image) (Screen, bool) {
	course, ok := d.refs.Intro.Resolve(VariantImage(frame), TrackImage(frame))
	if !ok {
		course = UnknownCourse
		d.archiveUnknown(frame)
	}
	d.log.Info("matched course", "course", course)
	return Intro{Course: course}, true
}

func (d *Detector) archiveUnknown(frame image.Image) {
	if d.unknown == nil {
		return
	}
	path, err := d.unknown.Save(frame)
	if err != nil {
		d.log.Warn("failed to save frame for unknown course", "error", err)
		return
	}
	d.log.Info("saved unknown course frame", "path", path)
}

// VariantImage is the binarized title-card style logo.
func VariantImage(frame image.Image) *image.RGBA {
	return pixel.Binarize(frame, introVariantRegion, IntroBinarizeCutoff)
}

// TrackImage is the binarized track name.
func TrackImage(frame image.Image) *image.RGBA {
	return pixel.Binarize(frame, introTrackRegion, IntroBinarizeCutoff)
}

// Resolve finds the variant group first, then the closest track inside it.
// Non-matching variants sit far above the cutoff, so the first group under
// it is taken without scanning the rest.
func (r IntroReferences) Resolve(variant, track image.Image) (string, bool) {
	vh, err := hasher.Hash(variant)
	if err != nil {
		return "", false
	}

	group := -1
	for i, g := range r.Variants {
		if g.Reference.Matches(vh) {
			group = i
			break
		}
	}
	if group < 0 {
		return "", false
	}

	th, err := hasher.Hash(track)
	if err != nil {
		return "", false
	}
	m, ok := r.Variants[group].Tracks.Match(th)
	if !ok {
		return "", false
	}
	return m.Value, true
}

// IntroArchive writes frames as <Dir>/<unix-ms>.jpg. The directory must
// already exist.
type IntroArchive struct {
	Dir string
	Now func() time.Time
}

// Save implements FrameSink.
func (a IntroArchive) Save(img image.Image) (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	path := filepath.Join(a.Dir, fmt.Sprintf("%d.jpg", now().UnixMilli()))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("make sure the %s directory exists: %w", a.Dir, err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
