// Package analyzer dispatches frames to the screen detectors
package analyzer

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/nfnt/resize"

	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

type stage struct {
	kind    screens.Kind
	compare func(image.Image) bool
	process func(image.Image) (screens.Screen, bool)
}

// Classifier maps a frame to exactly one screen. Detectors are tried in a
// fixed order and the first whose comparator accepts the frame decides the
// result, even when it extracts nothing.
type Classifier struct {
	detector *screens.Detector
	stages   []stage
	log      *slog.Logger
}

// Option configures a Classifier.
type Option func(*options)

type options struct {
	sink screens.FrameSink
	log  *slog.Logger
}

// WithUnknownIntroSink archives intro frames whose course cannot be resolved.
func WithUnknownIntroSink(s screens.FrameSink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New builds a classifier over refs.
func New(refs *screens.References, opts ...Option) *Classifier {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	dopts := []screens.Option{screens.WithLogger(o.log)}
	if o.sink != nil {
		dopts = append(dopts, screens.WithUnknownIntroSink(o.sink))
	}
	d := screens.NewDetector(refs, dopts...)

	return &Classifier{
		detector: d,
		log:      o.log,
		stages: []stage{
			{screens.KindRace, d.CompareRace, d.ProcessRace},
			{screens.KindMainMenu, d.CompareMainMenu, d.ProcessMainMenu},
			{screens.KindRaceResult, d.CompareRaceResult, d.ProcessRaceResult},
			{screens.KindSelectCharacter, d.CompareSelectCharacter, d.ProcessSelectCharacter},
			{screens.KindLoading, d.CompareLoading, d.ProcessLoading},
			{screens.KindIntro, d.CompareIntro, d.ProcessIntro},
			{screens.KindMatchResult, d.CompareMatchResult, d.ProcessMatchResult},
		},
	}
}

// Order returns the kinds in the order they are tried.
func (c *Classifier) Order() []screens.Kind {
	out := make([]screens.Kind, len(c.stages))
	for i, p := range c.stages {
		out[i] = p.kind
	}
	return out
}

// Detector exposes the underlying detectors.
func (c *Classifier) Detector() *screens.Detector { return c.detector }

// Classify normalizes the frame to the canonical size and classifies it.
// ok is false only when a matched detector found no data.
func (c *Classifier) Classify(img image.Image) (screens.Screen, bool) {
	return c.ClassifyResized(Normalize(img))
}

// ClassifyResized classifies a frame that is already 1280x720 at the origin.
func (c *Classifier) ClassifyResized(frame image.Image) (screens.Screen, bool) {
	for _, p := range c.stages {
		if !p.compare(frame) {
			continue
		}
		s, ok := p.process(frame)
		if !ok {
			c.log.Debug("matched screen has no data", "kind", p.kind)
		}
		return s, ok
	}
	return screens.Unknown{}, true
}

// Normalize returns img as an origin-anchored 1280x720 RGBA image, scaling
// with nearest-neighbor sampling when the size differs.
func Normalize(img image.Image) *image.RGBA {
	b := img.Bounds()
	if b.Dx() != screens.FrameWidth || b.Dy() != screens.FrameHeight {
		img = resize.Resize(screens.FrameWidth, screens.FrameHeight, img, resize.NearestNeighbor)
		b = img.Bounds()
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
