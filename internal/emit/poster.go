package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
	"github.com/GriffinCanCode/kartalytics/internal/resilience"
	"github.com/GriffinCanCode/kartalytics/internal/trace"
)

// PosterConfig configures a Poster.
type PosterConfig struct {
	URL        string
	QueueSize  int
	BatchSize  int
	FlushDelay time.Duration // wait for a batch to fill; unused when BatchSize is 1

	Client  *http.Client
	Breaker resilience.Config
	Retry   resilience.RetryConfig
	Log     *slog.Logger
}

func (c PosterConfig) withDefaults() PosterConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushDelay <= 0 {
		c.FlushDelay = DefaultFlushDelay
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: RequestTimeout}
	}
	if c.Breaker == (resilience.Config{}) {
		c.Breaker = resilience.EmitConfig()
	}
	if c.Retry.MaxRetries == 0 && c.Retry.BaseDelay == 0 {
		c.Retry = resilience.EmitRetryConfig()
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Poster delivers events to the ingest endpoint from a bounded queue. A
// single worker drains the queue in batches so posts never block frame
// processing.
type Poster struct {
	cfg     PosterConfig
	breaker *resilience.Breaker
	queue   chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPoster validates cfg and starts the worker.
func NewPoster(cfg PosterConfig) (*Poster, error) {
	if cfg.URL == "" {
		return nil, apperr.New(apperr.CONFIG_INVALID, "ingest URL is required")
	}
	cfg = cfg.withDefaults()
	p := &Poster{
		cfg:     cfg,
		breaker: resilience.New(cfg.Breaker),
		queue:   make(chan Event, cfg.QueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// Queue implements Sink. Events are dropped when the queue is full or the
// poster has stopped.
func (p *Poster) Queue(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- ev:
		return true
	default:
		p.cfg.Log.Warn("emit queue full, dropping event", "event_type", ev.EventType, "capacity", cap(p.queue))
		return false
	}
}

// Pending is the number of queued events.
func (p *Poster) Pending() int { return len(p.queue) }

// Stop closes the queue, posts whatever is left and waits for the worker.
func (p *Poster) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poster) run() {
	defer p.wg.Done()

	batch := make([]Event, 0, p.cfg.BatchSize)
	var timer *time.Timer
	var timeout <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		p.flush(batch)
		batch = make([]Event, 0, p.cfg.BatchSize)
	}

	for {
		select {
		case ev, ok := <-p.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= p.cfg.BatchSize {
				flush()
			} else if timer == nil {
				timer = time.NewTimer(p.cfg.FlushDelay)
				timeout = timer.C
			}
		case <-timeout:
			timer, timeout = nil, nil
			flush()
		}
	}
}

func (p *Poster) flush(events []Event) {
	ctx, span := trace.StartSpan(context.Background(), "emit_batch_flush")
	defer span.End()
	span.SetAttr("count", len(events))
	log := trace.Logger(ctx)

	body, err := json.Marshal(Batch{Events: events})
	if err != nil {
		log.Error("failed to encode events", "error", err, "count", len(events))
		return
	}

	start := time.Now()
	err = p.breaker.Execute(func() error {
		return resilience.Retry(ctx, p.cfg.Retry, func() error {
			return p.post(ctx, body)
		})
	})
	span.SetAttr("elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("failed to post events", "error", err, "count", len(events), "breaker", p.breaker.State())
		return
	}
	log.Debug("events posted", "count", len(events), "elapsed", time.Since(start))
}

func (p *Poster) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(err, apperr.CONFIG_INVALID, "invalid ingest URL")
	}
	req.Header.Set("Content-Type", ContentType)
	trace.Inject(ctx, req.Header)

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return apperr.Wrap(err, apperr.UNAVAILABLE, "ingest request failed")
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return apperr.Newf(apperr.UNAVAILABLE, "ingest returned %d", resp.StatusCode).
			WithMetadata("body", string(detail))
	default:
		return apperr.Newf(apperr.EMIT_REJECTED, "ingest returned %d", resp.StatusCode).
			WithMetadata("body", string(detail))
	}
}
