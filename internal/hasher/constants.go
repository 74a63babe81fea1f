// Package hasher computes perceptual hashes and matches them against reference tables
package hasher

// Matching constants
const (
	// Distance reported for incomparable hashes, beyond any 64-bit Hamming distance
	MaxDistance = 65

	// Tables at or below this size are scanned inline
	ParallelCutoff = 8
)
