// Package stream turns capture devices, video files and image directories
// into a sequence of decoded frames
package stream

import (
	"bytes"
	"context"
	"image"
)

// Frame is one captured image. Data holds the encoded bytes as read.
type Frame struct {
	Index int
	Data  []byte
	Image image.Image
}

// Source produces frames until ctx ends or input is exhausted. The frame
// channel is closed when the source stops; a terminal error, if any, is sent
// on the error channel before it is closed.
type Source interface {
	Frames(ctx context.Context) (<-chan Frame, <-chan error)
}

// SplitJPEG is a bufio.SplitFunc that yields whole JPEG images by locating
// the start-of-image and end-of-image markers.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end += start + len(jpegSOI) + len(jpegEOI)
	return end, data[start:end], nil
}

// send delivers f unless ctx ends first.
func send(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
