// Package emit turns classified screens into ingest events and posts them
// to the collection endpoint
package emit

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

// Event is one classified screen as sent to the ingest endpoint.
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Batch is the request body of an ingest post.
type Batch struct {
	Events []Event `json:"events"`
}

// Sink accepts events for delivery. Queue reports whether the event was
// accepted.
type Sink interface {
	Queue(Event) bool
}

// Emitter suppresses repeats of the last event and hands the rest to a Sink.
// Without a sink it runs in debug mode and only logs.
type Emitter struct {
	sink        Sink
	minInterval time.Duration
	now         func() time.Time
	log         *slog.Logger

	mu       sync.Mutex
	last     screens.Screen
	lastType string
	lastAt   time.Time
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithMinInterval sets the repeat suppression window.
func WithMinInterval(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.minInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Emitter) { e.log = log }
}

// NewEmitter creates an emitter delivering to sink, which may be nil.
func NewEmitter(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:        sink,
		minInterval: DefaultMinInterval,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit builds the event for s and queues it unless s is Unknown or repeats
// the last emitted payload within the suppression window. It returns the
// event and whether it was emitted.
func (e *Emitter) Emit(s screens.Screen) (Event, bool) {
	if s == nil || s.Kind() == screens.KindUnknown {
		return Event{}, false
	}
	data, err := screens.Marshal(s)
	if err != nil {
		e.log.Warn("failed to encode screen", "kind", s.Kind(), "error", err)
		return Event{}, false
	}
	ev := Event{EventType: screens.EventType(s), Data: data, Timestamp: e.now().UTC()}

	e.mu.Lock()
	if e.skip(s, ev) {
		e.mu.Unlock()
		e.log.Debug("skipping repeated event", "event_type", ev.EventType)
		return Event{}, false
	}
	e.last, e.lastType, e.lastAt = s, ev.EventType, ev.Timestamp
	e.mu.Unlock()

	if e.sink == nil {
		e.log.Info("event", "event_type", ev.EventType, "data", string(ev.Data))
		return ev, true
	}
	if !e.sink.Queue(ev) {
		return ev, false
	}
	return ev, true
}

// skip must be called with mu held. Screens are compared whole, so fields
// left out of the payload such as Race.Starting still count as a change.
func (e *Emitter) skip(s screens.Screen, ev Event) bool {
	if e.last == nil {
		return false
	}
	if ev.Timestamp.Sub(e.lastAt) > e.minInterval {
		return false
	}
	return ev.EventType == e.lastType && reflect.DeepEqual(s, e.last)
}
