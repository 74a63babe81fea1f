package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os/exec"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
)

// FFmpegSource decodes a capture device or video file through ffmpeg's MJPEG
// pipe output.
type FFmpegSource struct {
	Input  string
	Format string // input demuxer such as v4l2 or avfoundation; empty for files
	Width  int
	Height int

	MinFrameBytes int
	Log           *slog.Logger

	// Binary defaults to "ffmpeg".
	Binary string
}

// Args returns the ffmpeg command line without the binary.
func (s *FFmpegSource) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.Format != "" {
		args = append(args, "-f", s.Format)
		if s.Width > 0 && s.Height > 0 {
			args = append(args, "-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height))
		}
	}
	return append(args, "-i", s.Input, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// Frames implements Source.
func (s *FFmpegSource) Frames(ctx context.Context) (<-chan Frame, <-chan error) {
	out := make(chan Frame)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)
		if err := s.run(ctx, out); err != nil {
			errc <- err
		}
	}()
	return out, errc
}

func (s *FFmpegSource) run(ctx context.Context, out chan<- Frame) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	bin := s.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	minBytes := s.MinFrameBytes
	if minBytes <= 0 {
		minBytes = MinFrameBytes
	}

	cmd := exec.CommandContext(ctx, bin, s.Args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return apperr.Wrap(err, apperr.STREAM_FAILED, "failed to create ffmpeg stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return apperr.Wrap(err, apperr.STREAM_FAILED, "failed to start ffmpeg").WithMetadata("input", s.Input)
	}
	log.Info("capture started", "input", s.Input, "format", s.Format)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, InitialBufferSize), MaxFrameSize)
	scanner.Split(SplitJPEG)

	count := 0
	for scanner.Scan() {
		count++
		raw := scanner.Bytes()
		if len(raw) < minBytes {
			log.Debug("dropping short frame", "index", count, "bytes", len(raw))
			continue
		}

		data := make([]byte, len(raw))
		copy(data, raw)
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			log.Warn("failed to decode frame", "index", count, "error", err)
			continue
		}
		if !send(ctx, out, Frame{Index: count, Data: data, Image: img}) {
			break
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if scanErr != nil {
		return apperr.Wrap(scanErr, apperr.STREAM_FAILED, "frame scanner failed")
	}
	if waitErr != nil {
		e := apperr.Wrap(waitErr, apperr.STREAM_FAILED, "ffmpeg exited with error")
		if stderr.Len() > 0 {
			e.WithMetadata("stderr", stderr.String())
		}
		return e
	}
	log.Info("capture finished", "input", s.Input, "frames", count)
	return nil
}
