// Package hasher computes perceptual hashes and matches them against reference tables
package hasher

import (
	"errors"
	"image"
	"math/bits"
	"runtime"
	"sync"

	"github.com/corona10/goimagehash"
)

// ErrEmptyImage is returned when there is nothing to hash.
var ErrEmptyImage = errors.New("hasher: empty image")

// Hash computes the perceptual hash used for both references and candidates.
func Hash(img image.Image) (*goimagehash.ImageHash, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return goimagehash.DifferenceHash(img)
}

// Distance is the Hamming distance between two hashes. Hashes of a different
// kind never match and report MaxDistance.
func Distance(a, b *goimagehash.ImageHash) int {
	if a == nil || b == nil || a.GetKind() != b.GetKind() {
		return MaxDistance
	}
	return bits.OnesCount64(a.GetHash() ^ b.GetHash())
}

// MinDistance returns the smallest distance from h to any of refs.
func MinDistance(h *goimagehash.ImageHash, refs []*goimagehash.ImageHash) int {
	best := MaxDistance
	for _, r := range refs {
		if d := Distance(h, r); d < best {
			best = d
		}
	}
	return best
}

// Accepts applies a threshold test: strict "<" unless inclusive.
func Accepts(dist, threshold int, inclusive bool) bool {
	if inclusive {
		return dist <= threshold
	}
	return dist < threshold
}

// Entry is one labeled reference with its own threshold.
type Entry[T any] struct {
	Value     T
	Hashes    []*goimagehash.ImageHash
	Threshold int
}

// Table is an ordered set of entries. Order breaks distance ties.
type Table[T any] struct {
	Entries   []Entry[T]
	Inclusive bool
}

// Match is the winning entry of a lookup.
type Match[T any] struct {
	Value    T
	Distance int
	Index    int
}

// Distances computes each entry's minimum distance to h. Work fans out over a
// fixed number of workers; results keep catalog order.
func (t Table[T]) Distances(h *goimagehash.ImageHash) []int {
	out := make([]int, len(t.Entries))
	if len(t.Entries) <= ParallelCutoff {
		for i, e := range t.Entries {
			out[i] = MinDistance(h, e.Hashes)
		}
		return out
	}

	workers := min(runtime.GOMAXPROCS(0), len(t.Entries))
	next := make(chan int, len(t.Entries))
	for i := range t.Entries {
		next <- i
	}
	close(next)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				out[i] = MinDistance(h, t.Entries[i].Hashes)
			}
		}()
	}
	wg.Wait()
	return out
}

// Match returns the minimum-distance entry among those within their own
// threshold. Ties resolve to the earliest entry.
func (t Table[T]) Match(h *goimagehash.ImageHash) (Match[T], bool) {
	best := Match[T]{Distance: MaxDistance, Index: -1}
	for i, d := range t.Distances(h) {
		if !Accepts(d, t.Entries[i].Threshold, t.Inclusive) {
			continue
		}
		if best.Index < 0 || d < best.Distance {
			best = Match[T]{Value: t.Entries[i].Value, Distance: d, Index: i}
		}
	}
	return best, best.Index >= 0
}

// Len returns the number of entries.
func (t Table[T]) Len() int { return len(t.Entries) }
