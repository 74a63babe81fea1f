package stream

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
)

// DirSource replays the images of a directory in lexical order.
type DirSource struct {
	Dir string
	Log *slog.Logger
}

// IsImage reports whether path has an extension DirSource reads.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Files lists the images DirSource would replay.
func (s *DirSource) Files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.NOT_FOUND, "failed to read %s", s.Dir)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			files = append(files, filepath.Join(s.Dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// Frames implements Source. Unreadable images are logged and skipped.
func (s *DirSource) Frames(ctx context.Context) (<-chan Frame, <-chan error) {
	out := make(chan Frame)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)

		log := s.Log
		if log == nil {
			log = slog.Default()
		}
		files, err := s.Files()
		if err != nil {
			errc <- err
			return
		}
		for i, path := range files {
			f, err := ReadFrame(path)
			if err != nil {
				log.Warn("skipping image", "path", path, "error", err)
				continue
			}
			f.Index = i + 1
			if !send(ctx, out, f) {
				return
			}
		}
	}()
	return out, errc
}

// ReadFrame loads and decodes one image file.
func ReadFrame(path string) (Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, apperr.Wrapf(err, apperr.NOT_FOUND, "failed to read %s", path)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, apperr.Wrapf(err, apperr.FRAME_DECODE, "failed to decode %s", path)
	}
	return Frame{Data: data, Image: img}, nil
}
