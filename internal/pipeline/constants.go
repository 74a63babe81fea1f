package pipeline

import "time"

// Pipeline configuration constants
const (
	// Frames waiting for the classifier; extra frames are dropped
	WorkQueueSize = 1

	// How often throughput is logged
	StatsInterval = 10 * time.Second
)
