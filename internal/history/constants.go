package history

// Store defaults
const (
	DefaultSize        = 100
	DefaultEventBuffer = 64
)
