package screens

import (
	"image"
	"log/slog"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

// FrameSink persists frames that need manual labeling.
type FrameSink interface {
	Save(img image.Image) (string, error)
}

// Detector runs the per-kind comparators and processors against a shared,
// read-only reference catalog. It is safe for concurrent use.
type Detector struct {
	refs    *References
	unknown FrameSink
	log     *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithUnknownIntroSink sets where unresolved intro frames are written.
func WithUnknownIntroSink(s FrameSink) Option {
	return func(d *Detector) { d.unknown = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// NewDetector creates a detector over refs.
func NewDetector(refs *References, opts ...Option) *Detector {
	d := &Detector{refs: refs, log: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// References returns the catalog the detector reads.
func (d *Detector) References() *References { return d.refs }

func regionMatches(ref Reference, frame image.Image, r image.Rectangle) bool {
	return ref.MatchesImage(pixel.Copy(frame, r))
}

func regionHash(frame image.Image, r image.Rectangle) (*goimagehash.ImageHash, bool) {
	h, err := hasher.Hash(pixel.Copy(frame, r))
	if err != nil {
		return nil, false
	}
	return h, true
}

func hashGray(frame image.Image, r image.Rectangle) (*goimagehash.ImageHash, bool) {
	h, err := hasher.Hash(pixel.Gray(frame, r))
	if err != nil {
		return nil, false
	}
	return h, true
}
