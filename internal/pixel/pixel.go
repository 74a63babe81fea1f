// Package pixel provides region sampling helpers over 16-bit channel values
package pixel

import (
	"image"
	"image/color"
	"image/draw"
)

// RGB holds per-channel values on the 16-bit scale (0-65535).
type RGB [3]uint32

// Rect builds a rectangle from an origin and a size.
func Rect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// Average returns the mean color of the region, clipped to the image bounds.
// Each channel is divided independently, truncating like an integer mean.
func Average(img image.Image, r image.Rectangle) RGB {
	r = r.Intersect(img.Bounds())
	n := uint64(r.Dx() * r.Dy())
	if n == 0 {
		return RGB{}
	}

	var sr, sg, sb uint64
	if rgba, ok := img.(*image.RGBA); ok {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := rgba.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				sr += uint64(rgba.Pix[off]) * 0x101
				sg += uint64(rgba.Pix[off+1]) * 0x101
				sb += uint64(rgba.Pix[off+2]) * 0x101
				off += 4
			}
		}
	} else {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				sr += uint64(cr)
				sg += uint64(cg)
				sb += uint64(cb)
			}
		}
	}
	return RGB{uint32(sr / n), uint32(sg / n), uint32(sb / n)}
}

// OverallAverage is the mean of the three averaged channels.
func OverallAverage(img image.Image, r image.Rectangle) uint32 {
	return Average(img, r).Mean()
}

// Mean returns (r+g+b)/3.
func (c RGB) Mean() uint32 {
	return (c[0] + c[1] + c[2]) / 3
}

// Lightness is the HSL lightness of a color: (max+min)/2 on the 16-bit scale.
func Lightness(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (max(r, g, b) + min(r, g, b)) / 2
}

// LightnessAt samples the lightness of a single pixel.
func LightnessAt(img image.Image, x, y int) uint32 {
	return Lightness(img.At(x, y))
}

// Binarize copies the region into a new image where each pixel becomes pure
// white when its 8-bit channel mean exceeds cutoff and pure black otherwise.
// The returned image starts at the origin; the source is left untouched.
func Binarize(img image.Image, r image.Rectangle, cutoff uint8) *image.RGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			avg := ((cr >> 8) + (cg >> 8) + (cb >> 8)) / 3
			v := uint8(0)
			if avg > uint32(cutoff) {
				v = 0xff
			}
			i := out.PixOffset(x-r.Min.X, y-r.Min.Y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 0xff
		}
	}
	return out
}

// Gray copies the region into a new grayscale image anchored at the origin.
func Gray(img image.Image, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out.Set(x-r.Min.X, y-r.Min.Y, img.At(x, y))
		}
	}
	return out
}

// Copy returns the region as a new RGBA image anchored at the origin.
func Copy(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// MostlyRed reports a strong red channel with weak green and blue.
func MostlyRed(c RGB) bool {
	return c[0] > DominantFloor && c[1] < RecessiveCeiling && c[2] < RecessiveCeiling
}

// MostlyGreen reports a strong green channel with weak red and blue.
func MostlyGreen(c RGB) bool {
	return c[1] > DominantFloor && c[0] < RecessiveCeiling && c[2] < RecessiveCeiling
}

// MostlyBlue reports a strong blue channel with weak red and green.
func MostlyBlue(c RGB) bool {
	return c[2] > DominantFloor && c[0] < RecessiveCeiling && c[1] < RecessiveCeiling
}

// Seat maps a HUD accent color to the seat that renders it: yellow is seat 0,
// cyan seat 1, red seat 2 and green seat 3. The checks run in that priority so
// yellow and cyan win over their single-channel components.
func Seat(c RGB, threshold uint32) (int, bool) {
	r, g, b := c[0] > threshold, c[1] > threshold, c[2] > threshold
	switch {
	case r && g:
		return 0, true
	case g && b:
		return 1, true
	case g:
		return 3, true
	case r:
		return 2, true
	default:
		return 0, false
	}
}

// SeatAccent reports whether c carries the channels of the given seat's HUD
// accent. Unlike Seat it only checks the required channels.
func SeatAccent(seat int, c RGB, threshold uint32) bool {
	r, g, b := c[0] > threshold, c[1] > threshold, c[2] > threshold
	switch seat {
	case 0:
		return r && g
	case 1:
		return g && b
	case 2:
		return r
	case 3:
		return g
	default:
		return false
	}
}
