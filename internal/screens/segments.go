package screens

import (
	"image"

	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

// segments is the lit state of a seven-segment digit in the order top,
// top-left, top-right, center, bottom-left, bottom-right, bottom.
type segments [7]bool

var digitPatterns = map[segments]int{
	{true, true, true, false, true, true, true}:    0,
	{false, false, true, false, false, true, false}: 1,
	{true, false, true, true, true, false, true}:    2,
	{true, false, true, true, false, true, true}:    3,
	{false, true, true, true, false, true, false}:   4,
	{true, true, false, true, false, true, true}:    5,
	{true, true, false, true, true, true, true}:     6,
	{true, false, true, false, false, true, false}:  7,
	{true, true, true, true, true, true, true}:      8,
	{true, true, true, true, false, true, true}:     9,
}

// segmentSamples are sample rectangles relative to a digit's left edge.
var segmentSamples = [7]image.Rectangle{
	pixel.Rect(7, 6, 3, 1),
	pixel.Rect(2, 10, 1, 3),
	pixel.Rect(16, 10, 1, 3),
	pixel.Rect(7, 18, 3, 1),
	pixel.Rect(2, 22, 3, 1),
	pixel.Rect(16, 22, 3, 1),
	pixel.Rect(7, 30, 3, 1),
}

// decodeScore reads a two-digit score from a binarized standings section.
// Both digits must decode.
func decodeScore(section image.Image) (int, bool) {
	tens, ok := decodeDigit(section, TensDigitX)
	if !ok {
		return 0, false
	}
	ones, ok := decodeDigit(section, OnesDigitX)
	if !ok {
		return 0, false
	}
	return tens*10 + ones, true
}

func decodeDigit(section image.Image, x int) (int, bool) {
	var s segments
	for i, r := range segmentSamples {
		s[i] = pixel.OverallAverage(section, r.Add(image.Pt(x, 0))) < SegmentMaxBrightness
	}
	d, ok := digitPatterns[s]
	return d, ok
}
