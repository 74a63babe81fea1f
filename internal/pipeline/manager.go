// Package pipeline wires a frame source through the classifier into the
// emitter and history, keeping the latest result for the API
package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/kartalytics/internal/emit"
	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
	"github.com/GriffinCanCode/kartalytics/internal/history"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
	"github.com/GriffinCanCode/kartalytics/internal/stream"
	"github.com/GriffinCanCode/kartalytics/internal/syncx"
	"github.com/GriffinCanCode/kartalytics/internal/trace"
)

// Classifier maps a frame to a screen. ok is false when a detector matched
// but extracted nothing.
type Classifier interface {
	Classify(img image.Image) (s screens.Screen, ok bool)
}

// Emitter forwards classified screens.
type Emitter interface {
	Emit(s screens.Screen) (emit.Event, bool)
}

// Saver archives raw frames.
type Saver interface {
	Save(f stream.Frame)
}

// Snapshot is the most recent classification.
type Snapshot struct {
	Kind      string          `json:"kind"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Frame     int             `json:"frame"`
	Timestamp time.Time       `json:"timestamp"`
}

// Stats counts frames seen by a running pipeline.
type Stats struct {
	Received   int64 `json:"received"`
	Classified int64 `json:"classified"`
	Dropped    int64 `json:"dropped"`
	Emitted    int64 `json:"emitted"`
}

// Config holds the parts a Manager coordinates. Source and Saver may be nil
// for on-demand use.
type Config struct {
	Source     stream.Source
	Classifier Classifier
	Emitter    Emitter
	History    history.Store
	Saver      Saver
	Log        *slog.Logger
}

// Manager runs one frame source at a time. The reader never waits on the
// classifier: frames that arrive while a frame is being classified are
// dropped.
type Manager struct {
	source     stream.Source
	classifier Classifier
	emitter    Emitter
	history    history.Store
	saver      Saver
	log        *slog.Logger
	now        func() time.Time

	latest *syncx.RWGuard[Snapshot]

	received   atomic.Int64
	classified atomic.Int64
	dropped    atomic.Int64
	emitted    atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	running bool
}

// New creates a manager. Classifier and Emitter are required.
func New(cfg Config) (*Manager, error) {
	if cfg.Classifier == nil || cfg.Emitter == nil {
		return nil, apperr.New(apperr.INVALID_ARGUMENT, "pipeline needs a classifier and an emitter")
	}
	if cfg.History == nil {
		cfg.History = history.NewStore(history.DefaultSize, history.DefaultEventBuffer)
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Manager{
		source:     cfg.Source,
		classifier: cfg.Classifier,
		emitter:    cfg.Emitter,
		history:    cfg.History,
		saver:      cfg.Saver,
		log:        cfg.Log,
		now:        time.Now,
		latest:     syncx.NewGuard(Snapshot{Kind: screens.KindUnknown.String(), EventType: screens.KindUnknown.EventType()}),
	}, nil
}

// Start begins consuming the source in the background.
func (m *Manager) Start(ctx context.Context) error {
	if m.source == nil {
		return apperr.New(apperr.INVALID_ARGUMENT, "pipeline has no frame source")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return apperr.New(apperr.INVALID_ARGUMENT, "pipeline already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	frames, errc := m.source.Frames(ctx)
	work := make(chan stream.Frame, WorkQueueSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(work)
		m.read(ctx, frames, work)
	}()
	go func() {
		defer wg.Done()
		for f := range work {
			m.handle(ctx, f)
		}
	}()
	go m.report(ctx)

	go func() {
		wg.Wait()
		err := <-errc
		cancel()
		m.mu.Lock()
		m.runErr = err
		m.running = false
		m.mu.Unlock()
		if err != nil {
			m.log.Error("frame source failed", "error", err)
		}
		m.log.Info("pipeline stopped", "stats", m.Stats())
		close(m.done)
	}()
	return nil
}

func (m *Manager) read(ctx context.Context, frames <-chan stream.Frame, work chan<- stream.Frame) {
	for f := range frames {
		m.received.Add(1)
		if m.saver != nil {
			m.saver.Save(f)
		}
		select {
		case work <- f:
		case <-ctx.Done():
			return
		default:
			m.dropped.Add(1)
		}
	}
}

func (m *Manager) handle(ctx context.Context, f stream.Frame) {
	if f.Image == nil {
		return
	}
	ctx, span := trace.StartSpan(ctx, "classify_frame")
	defer span.End()
	span.SetAttr("frame", f.Index)
	log := trace.Logger(ctx)

	s, ok := m.classifier.Classify(f.Image)
	m.classified.Add(1)
	if !ok || s == nil {
		log.Debug("screen matched without data", "frame", f.Index)
		return
	}
	span.SetAttr("kind", s.Kind().String())

	snap, err := m.snapshot(s, f.Index)
	if err != nil {
		log.Warn("failed to encode screen", "error", err)
		return
	}
	m.latest.Set(snap)

	ev, sent := m.emitter.Emit(s)
	if !sent {
		return
	}
	m.emitted.Add(1)
	entry := history.Entry{Timestamp: ev.Timestamp, Kind: snap.Kind, EventType: ev.EventType, Data: ev.Data}
	m.history.Add(entry)
	m.history.Emit(entry)
	log.Debug("screen emitted", "span", span)
}

func (m *Manager) snapshot(s screens.Screen, index int) (Snapshot, error) {
	data, err := screens.Marshal(s)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Kind:      s.Kind().String(),
		EventType: screens.EventType(s),
		Data:      data,
		Frame:     index,
		Timestamp: m.now().UTC(),
	}, nil
}

func (m *Manager) report(ctx context.Context) {
	ticker := time.NewTicker(StatsInterval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.classified.Load()
			fps := float64(n-last) / StatsInterval.Seconds()
			last = n
			m.log.Info("pipeline throughput", "fps", fps, "dropped", m.dropped.Load(), "emitted", m.emitted.Load())
		}
	}
}

// Classify runs the classifier on img without emitting or recording it.
func (m *Manager) Classify(ctx context.Context, img image.Image) (Snapshot, bool) {
	ctx, span := trace.StartSpan(ctx, "classify_request")
	defer span.End()

	s, ok := m.classifier.Classify(img)
	if !ok || s == nil {
		return Snapshot{}, false
	}
	snap, err := m.snapshot(s, 0)
	if err != nil {
		trace.Logger(ctx).Warn("failed to encode screen", "error", err)
		return Snapshot{}, false
	}
	span.SetAttr("kind", snap.Kind)
	return snap, true
}

// Latest returns the most recent snapshot.
func (m *Manager) Latest() Snapshot { return m.latest.Get() }

// Recent returns up to n recorded entries, newest first.
func (m *Manager) Recent(n int) []history.Entry { return m.history.Recent(n) }

// Counts returns per-kind totals of recorded entries.
func (m *Manager) Counts() map[string]int { return m.history.Counts() }

// Events streams newly recorded entries.
func (m *Manager) Events() <-chan history.Entry { return m.history.Events() }

// Stats returns frame counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Received:   m.received.Load(),
		Classified: m.classified.Load(),
		Dropped:    m.dropped.Load(),
		Emitted:    m.emitted.Load(),
	}
}

// Wait blocks until a started pipeline finishes and returns the source's
// terminal error.
func (m *Manager) Wait() error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runErr
}

// Stop cancels the source and waits for in-flight work.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = m.Wait()
}
