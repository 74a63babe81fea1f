package hasher

import (
	"image"
	"image/color"
	"testing"

	"github.com/corona10/goimagehash"
)

func h(bits uint64) *goimagehash.ImageHash {
	return goimagehash.NewImageHash(bits, goimagehash.DHash)
}

// ones returns a hash with the low n bits set, distance n from h(0).
func ones(n int) *goimagehash.ImageHash {
	if n >= 64 {
		return h(^uint64(0))
	}
	return h(uint64(1)<<n - 1)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b *goimagehash.ImageHash
		want int
	}{
		{h(0), h(0), 0},
		{h(0), ones(5), 5},
		{ones(3), ones(10), 7},
		{h(0), goimagehash.NewImageHash(0, goimagehash.AHash), MaxDistance},
		{nil, h(0), MaxDistance},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMinDistance(t *testing.T) {
	refs := []*goimagehash.ImageHash{ones(9), ones(4), ones(12)}
	if got := MinDistance(h(0), refs); got != 4 {
		t.Errorf("MinDistance = %d, want 4", got)
	}
	if got := MinDistance(h(0), nil); got != MaxDistance {
		t.Errorf("MinDistance(empty) = %d, want %d", got, MaxDistance)
	}
}

func TestAccepts(t *testing.T) {
	if Accepts(10, 10, false) {
		t.Error("strict threshold should reject equal distance")
	}
	if !Accepts(10, 10, true) {
		t.Error("inclusive threshold should accept equal distance")
	}
	if !Accepts(0, 1, false) {
		t.Error("distance 0 should pass any positive threshold")
	}
}

func TestTableMatchPicksGlobalMinimum(t *testing.T) {
	tbl := Table[string]{Entries: []Entry[string]{
		{Value: "first", Hashes: []*goimagehash.ImageHash{ones(8)}, Threshold: 14},
		{Value: "best", Hashes: []*goimagehash.ImageHash{ones(20), ones(3)}, Threshold: 14},
		{Value: "last", Hashes: []*goimagehash.ImageHash{ones(5)}, Threshold: 14},
	}}

	m, ok := tbl.Match(h(0))
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Value != "best" || m.Distance != 3 || m.Index != 1 {
		t.Errorf("Match = %+v, want best at distance 3", m)
	}
}

func TestTableMatchRespectsPerEntryThreshold(t *testing.T) {
	tbl := Table[string]{Entries: []Entry[string]{
		{Value: "tight", Hashes: []*goimagehash.ImageHash{ones(4)}, Threshold: 3},
		{Value: "loose", Hashes: []*goimagehash.ImageHash{ones(6)}, Threshold: 10},
	}}

	m, ok := tbl.Match(h(0))
	if !ok || m.Value != "loose" {
		t.Errorf("Match = %+v, %v; want loose", m, ok)
	}
}

func TestTableMatchInclusive(t *testing.T) {
	entries := []Entry[string]{{Value: "edge", Hashes: []*goimagehash.ImageHash{ones(12)}, Threshold: 12}}

	if _, ok := (Table[string]{Entries: entries}).Match(h(0)); ok {
		t.Error("strict table matched at threshold")
	}
	if _, ok := (Table[string]{Entries: entries, Inclusive: true}).Match(h(0)); !ok {
		t.Error("inclusive table missed at threshold")
	}
}

func TestTableMatchTieUsesCatalogOrder(t *testing.T) {
	tbl := Table[int]{Entries: []Entry[int]{
		{Value: 1, Hashes: []*goimagehash.ImageHash{h(0b0110)}, Threshold: 10},
		{Value: 2, Hashes: []*goimagehash.ImageHash{h(0b0011)}, Threshold: 10},
	}}

	for i := 0; i < 20; i++ {
		m, ok := tbl.Match(h(0))
		if !ok || m.Value != 1 {
			t.Fatalf("Match = %+v, want entry 1 on tie", m)
		}
	}
}

func TestTableMatchExactAlwaysWins(t *testing.T) {
	target := h(0xDEADBEEF)
	entries := make([]Entry[int], 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, Entry[int]{
			Value:     i,
			Hashes:    []*goimagehash.ImageHash{h(0xDEADBEEF ^ uint64(1)<<i)},
			Threshold: 16,
		})
	}
	entries = append(entries, Entry[int]{Value: 99, Hashes: []*goimagehash.ImageHash{target}, Threshold: 1})

	m, ok := Table[int]{Entries: entries}.Match(target)
	if !ok || m.Value != 99 || m.Distance != 0 {
		t.Errorf("Match = %+v, %v; want exact entry 99", m, ok)
	}
}

func TestTableMatchNone(t *testing.T) {
	tbl := Table[string]{Entries: []Entry[string]{
		{Value: "far", Hashes: []*goimagehash.ImageHash{ones(40)}, Threshold: 10},
	}}
	if m, ok := tbl.Match(h(0)); ok {
		t.Errorf("Match = %+v, want none", m)
	}
}

func TestDistancesParallelKeepsOrder(t *testing.T) {
	entries := make([]Entry[int], 40)
	for i := range entries {
		entries[i] = Entry[int]{Value: i, Hashes: []*goimagehash.ImageHash{ones(i)}, Threshold: 64}
	}

	got := Table[int]{Entries: entries}.Distances(h(0))
	for i, d := range got {
		if d != i {
			t.Fatalf("Distances[%d] = %d, want %d", i, d, i)
		}
	}
}

func TestHashIdenticalImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 0, A: 255})
		}
	}

	a, err := Hash(img)
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := Hash(img)
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if d := Distance(a, b); d != 0 {
		t.Errorf("Distance(identical) = %d, want 0", d)
	}
}

func TestHashEmpty(t *testing.T) {
	if _, err := Hash(image.NewRGBA(image.Rect(0, 0, 0, 0))); err != ErrEmptyImage {
		t.Errorf("Hash(empty) error = %v, want ErrEmptyImage", err)
	}
}
