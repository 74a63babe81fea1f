// Package pixel provides region sampling helpers over 16-bit channel values
package pixel

// Channel thresholds on the 16-bit scale
const (
	// "Mostly one color" bounds
	DominantFloor    = 40_000
	RecessiveCeiling = 20_000

	// HUD accent detection for seat colors
	AccentThreshold = 45_000
)
