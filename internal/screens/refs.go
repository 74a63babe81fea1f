package screens

import (
	"image"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/kartalytics/internal/hasher"
)

// Reference is a single piece of screen content, possibly captured several
// times to absorb rendering noise.
type Reference struct {
	Hashes    []*goimagehash.ImageHash
	Threshold int
	Inclusive bool
}

// Distance is the closest distance from h to any stored hash.
func (r Reference) Distance(h *goimagehash.ImageHash) int {
	return hasher.MinDistance(h, r.Hashes)
}

// Matches reports whether h is within the reference's threshold.
func (r Reference) Matches(h *goimagehash.ImageHash) bool {
	return hasher.Accepts(r.Distance(h), r.Threshold, r.Inclusive)
}

// MatchesImage hashes img and tests it. Unhashable input never matches.
func (r Reference) MatchesImage(img image.Image) bool {
	h, err := hasher.Hash(img)
	if err != nil {
		return false
	}
	return r.Matches(h)
}

// RaceReferences holds everything the race extractor compares against.
type RaceReferences struct {
	LapFlag   Reference
	Go        Reference
	Finished  Reference
	Positions hasher.Table[int]
	Items     hasher.Table[Item]
}

// VariantGroup is one title-card style with the tracks drawn in it. Track
// values are full course names, i.e. the track name plus Suffix.
type VariantGroup struct {
	Name      string
	Suffix    string
	Reference Reference
	Tracks    hasher.Table[string]
}

// IntroReferences holds the title-card gate and the variant groups in
// catalog order.
type IntroReferences struct {
	Title    Reference
	Variants []VariantGroup
}

// MatchResultReferences holds the speed-class banners.
type MatchResultReferences struct {
	Speed200 Reference
	Speed150 Reference
}

// References is the complete, read-only reference catalog.
type References struct {
	Race            RaceReferences
	Intro           IntroReferences
	MainMenu        Reference
	Loading         Reference
	SelectCharacter Reference
	MatchResult     MatchResultReferences
}

// Courses returns every known course name in catalog order.
func (r *References) Courses() []string {
	var out []string
	for _, g := range r.Intro.Variants {
		for _, t := range g.Tracks.Entries {
			out = append(out, t.Value)
		}
	}
	return out
}
