package emit

import "time"

// Emitter defaults
const (
	// Identical payloads inside this window are not resent
	DefaultMinInterval = 500 * time.Millisecond
)

// Poster defaults
const (
	DefaultQueueSize  = 2000
	DefaultBatchSize  = 1
	DefaultFlushDelay = 250 * time.Millisecond

	RequestTimeout = 5 * time.Second
	ContentType    = "application/json"
)
