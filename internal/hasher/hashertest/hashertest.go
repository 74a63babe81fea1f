// Package hashertest provides hashing helpers for tests.
package hashertest

import (
	"image"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
)

// Hash is hasher.Hash for images known to be non-empty. It panics otherwise.
func Hash(img image.Image) *goimagehash.ImageHash {
	h, err := hasher.Hash(img)
	if err != nil {
		panic(err)
	}
	return h
}
