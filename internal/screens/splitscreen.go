package screens

import (
	"image"

	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

// IsSplitScreen reports whether the frame shows the multi-seat race layout:
// black divider lines at all four edge midpoints, with non-black content in
// a left corner so that fully black screens are rejected.
func IsSplitScreen(frame image.Image) bool {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	ox, oy := b.Min.X, b.Min.Y

	strips := [...]image.Rectangle{
		pixel.Rect(ox+w/2-1, oy+2, 2, 4),   // top
		pixel.Rect(ox+2, oy+h/2-1, 4, 2),   // left
		pixel.Rect(ox+w-4, oy+h/2-1, 4, 2), // right
		pixel.Rect(ox+w/2-1, oy+h-4, 2, 4), // bottom
	}
	for _, s := range strips {
		if pixel.OverallAverage(frame, s) > DividerMaxBrightness {
			return false
		}
	}

	return pixel.LightnessAt(frame, ox, oy) > CornerMinLightness ||
		pixel.LightnessAt(frame, ox, oy+h-1) > CornerMinLightness
}
