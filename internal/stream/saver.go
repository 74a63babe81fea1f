package stream

import (
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
)

// FrameSaver writes every captured frame under <root>/<session>/ where the
// session directory is named after the time it was opened.
type FrameSaver struct {
	dir string
	log *slog.Logger
}

// NewFrameSaver creates the session directory.
func NewFrameSaver(root string, now time.Time, log *slog.Logger) (*FrameSaver, error) {
	if log == nil {
		log = slog.Default()
	}
	dir := filepath.Join(root, now.Format(time.RFC3339))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrapf(err, apperr.INTERNAL, "unable to create frame saving directory %s", dir)
	}
	return &FrameSaver{dir: dir, log: log}, nil
}

// Dir is the session directory.
func (s *FrameSaver) Dir() string { return s.dir }

// Save writes f as frame_<index>.jpg. Encoded JPEG frames are written as
// captured; other frames are re-encoded. Failures are logged, not returned.
func (s *FrameSaver) Save(f Frame) {
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%d.jpg", f.Index))
	if err := s.write(path, f); err != nil {
		s.log.Warn("failed to save frame", "path", path, "error", err)
	}
}

func (s *FrameSaver) write(path string, f Frame) error {
	if len(f.Data) >= len(jpegSOI) && f.Data[0] == jpegSOI[0] && f.Data[1] == jpegSOI[1] {
		return os.WriteFile(path, f.Data, 0o644)
	}
	if f.Image == nil {
		return fmt.Errorf("frame %d has no image", f.Index)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, f.Image, nil); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
