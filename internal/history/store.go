// Package history keeps a bounded record of recently emitted screens and
// fans new ones out to live subscribers
package history

import (
	"encoding/json"
	"sync"
	"time"
)

// Entry is one recorded screen.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      string          `json:"kind"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Store records entries and publishes them.
type Store interface {
	Add(e Entry)
	Recent(n int) []Entry
	Since(d time.Duration) []Entry
	Counts() map[string]int
	Events() <-chan Entry
	Emit(e Entry)
}

// MemoryStore is a fixed-size ring of entries. Counts cover everything ever
// added, not just what the ring still holds.
type MemoryStore struct {
	mu     sync.RWMutex
	ring   []Entry
	next   int
	full   bool
	counts map[string]int
	now    func() time.Time

	eventsCh chan Entry
}

// NewStore creates a store holding the latest size entries.
func NewStore(size, eventBuffer int) *MemoryStore {
	if size <= 0 {
		size = DefaultSize
	}
	if eventBuffer < 0 {
		eventBuffer = 0
	}
	return &MemoryStore{
		ring:     make([]Entry, size),
		counts:   make(map[string]int),
		now:      time.Now,
		eventsCh: make(chan Entry, eventBuffer),
	}
}

// Add records e, overwriting the oldest entry once the ring is full.
func (s *MemoryStore) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = e
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	s.counts[e.Kind]++
}

// Len is the number of entries held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

func (s *MemoryStore) lenLocked() int {
	if s.full {
		return len(s.ring)
	}
	return s.next
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (s *MemoryStore) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.lenLocked()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.ring[(s.next-i+len(s.ring))%len(s.ring)])
	}
	return out
}

// Since returns entries no older than d, newest first.
func (s *MemoryStore) Since(d time.Duration) []Entry {
	cutoff := s.now().Add(-d)
	var out []Entry
	for _, e := range s.Recent(0) {
		if e.Timestamp.Before(cutoff) {
			break
		}
		out = append(out, e)
	}
	return out
}

// Counts returns per-kind totals.
func (s *MemoryStore) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Events returns the channel new entries are published on.
func (s *MemoryStore) Events() <-chan Entry {
	return s.eventsCh
}

// Emit publishes e without blocking; it is dropped if nobody keeps up.
func (s *MemoryStore) Emit(e Entry) {
	select {
	case s.eventsCh <- e:
	default:
	}
}
