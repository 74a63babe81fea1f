package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding window for client messages
	RateLimitMessages = 30
	RateLimitWindow   = time.Second

	// Bound on a broadcast write to one slow client
	WriteTimeout = 5 * time.Second

	// Largest frame accepted by /api/classify
	MaxUploadBytes = 16 << 20

	DefaultHistoryLimit = 20
)
