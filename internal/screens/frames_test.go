package screens

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"testing"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/hasher/hashertest"
	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

var (
	black  = color.RGBA{0, 0, 0, 255}
	white  = color.RGBA{255, 255, 255, 255}
	gray   = color.RGBA{100, 100, 100, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	red    = color.RGBA{255, 0, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFrame(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	fill(img, img.Bounds(), c)
	return img
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// paintRidge draws a horizontal gradient that rises across the top half of r
// and falls across the bottom half, which hashes far from a flat region.
func paintRidge(img *image.RGBA, r image.Rectangle) {
	w := max(r.Dx()-1, 1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := 30 + (x-r.Min.X)*200/w
			if y-r.Min.Y >= r.Dy()/2 {
				v = 230 - (x-r.Min.X)*200/w
			}
			img.SetRGBA(x, y, color.RGBA{uint8(v), uint8(v), uint8(v), 255})
		}
	}
}

// paintDividers draws the black split-screen cross.
func paintDividers(img *image.RGBA) {
	fill(img, pixel.Rect(FrameWidth/2-1, 0, 2, FrameHeight), black)
	fill(img, pixel.Rect(0, FrameHeight/2-1, FrameWidth, 2), black)
}

func hashOf(img image.Image, r image.Rectangle) *goimagehash.ImageHash {
	return hashertest.Hash(pixel.Copy(img, r))
}

func grayHashOf(img image.Image, r image.Rectangle) *goimagehash.ImageHash {
	return hashertest.Hash(pixel.Gray(img, r))
}

// flip returns h with its n lowest bits inverted, exactly distance n away.
func flip(h *goimagehash.ImageHash, n int) *goimagehash.ImageHash {
	mask := ^uint64(0)
	if n < 64 {
		mask = uint64(1)<<n - 1
	}
	return goimagehash.NewImageHash(h.GetHash()^mask, h.GetKind())
}

// flipAway inverts n bits of h where it agrees with other, so the result is
// n away from h and n further from other.
func flipAway(h, other *goimagehash.ImageHash, n int) *goimagehash.ImageHash {
	v, o := h.GetHash(), other.GetHash()
	for bit := 0; bit < 64 && n > 0; bit++ {
		m := uint64(1) << bit
		if v&m == o&m {
			v ^= m
			n--
		}
	}
	return goimagehash.NewImageHash(v, h.GetKind())
}

func invert(h *goimagehash.ImageHash) *goimagehash.ImageHash {
	return flip(h, 64)
}

func ref(threshold int, hs ...*goimagehash.ImageHash) Reference {
	return Reference{Hashes: hs, Threshold: threshold}
}

// requireFar fails fast when the synthetic pattern is not distinct enough
// from a flat region for the test's distances to hold.
func requireFar(t *testing.T, a, b *goimagehash.ImageHash, want int) {
	t.Helper()
	if d := hasher.Distance(a, b); d < want {
		t.Fatalf("pattern too close to flat region: distance %d, need %d", d, want)
	}
}
