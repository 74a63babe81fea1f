// Package screens recognizes game screens and extracts their payloads
package screens

// Canonical frame geometry
const (
	FrameWidth  = 1280
	FrameHeight = 720

	// Fixed seats in a split-screen layout
	SeatCount = 4
)

// Split-screen detection (16-bit scale)
const (
	DividerMaxBrightness = 5000
	CornerMinLightness   = 3800
)

// Race screen
const (
	// Center column must be this dark while racing
	RaceCenterMaxBrightness = 5000
)

// Intro screen
const (
	// Speed-class indicator must be near white on every channel
	IntroSpeedMinChannel = 60_000

	// 8-bit mean cutoff for variant/track binarization
	IntroBinarizeCutoff = 220

	UnknownCourse = "Unknown Course"
)

// Race result scoreboard
const (
	ScoreboardTopMargin    = 50
	ScoreboardRowHeight    = 48
	ScoreboardRowMargin    = 4
	ScoreboardRowInset     = 2
	ScoreboardRows         = 12
	ScoreboardMinLightness = 12_850

	// More saturated pixels than this in the sampled column means a different layout
	ScoreboardMaxSaturated = 10
)

// Match result standings
const (
	StandingsTop        = 132
	StandingsRowHeight  = 38
	StandingsRowMargin  = 4
	StandingsColorX     = 104
	StandingsColorH     = 3
	StandingsColorFloor = 55_000
	StandingsScoreX     = 543
	StandingsScoreW     = 45

	// 8-bit cutoff used to binarize the score digits
	ScoreBinarizeCutoff = 130

	// Segment is lit when its 16-bit mean is below this
	SegmentMaxBrightness = 25_000

	// Horizontal offsets of the tens and ones digits
	TensDigitX = 0
	OnesDigitX = 23
)
