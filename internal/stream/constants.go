package stream

const megabyte = 1024 * 1024

// Scanner buffer bounds for piped MJPEG output
const (
	InitialBufferSize = megabyte
	MaxFrameSize      = 64 * megabyte
)

// MinFrameBytes drops truncated captures. Real 1080p frames are far larger.
const MinFrameBytes = 20_000

// Capture defaults
const (
	DefaultFormat = "v4l2"
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)
