// Package server exposes the latest classification, history and an
// on-demand classifier over HTTP, and streams new screens over WebSocket
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
	"github.com/GriffinCanCode/kartalytics/internal/history"
	"github.com/GriffinCanCode/kartalytics/internal/pipeline"
	"github.com/GriffinCanCode/kartalytics/internal/trace"
)

// Pipeline is the part of the frame pipeline the server reads from.
type Pipeline interface {
	Latest() pipeline.Snapshot
	Recent(n int) []history.Entry
	Counts() map[string]int
	Stats() pipeline.Stats
	Events() <-chan history.Entry
	Classify(ctx context.Context, img image.Image) (pipeline.Snapshot, bool)
}

// Message is the envelope every WebSocket message shares.
type Message struct {
	Type string `json:"type"`
}

// ScreenMessage announces a newly emitted screen.
type ScreenMessage struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// ErrorMessage reports a rejected client message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatsResponse is the body of /api/stats.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
	Frames pipeline.Stats `json:"frames"`
}

// ClassifyResponse is the body of /api/classify.
type ClassifyResponse struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
	now        func() time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{now: time.Now}
}

// allow records the message if the window has room.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-RateLimitWindow)
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipe Pipeline
	log  *slog.Logger

	mu    sync.RWMutex
	conns map[*websocket.Conn]*rateLimiter

	stopCh chan struct{}
	once   sync.Once
}

// New creates a server and starts broadcasting pipeline events.
func New(pipe Pipeline, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		pipe:   pipe,
		log:    log,
		conns:  make(map[*websocket.Conn]*rateLimiter),
		stopCh: make(chan struct{}),
	}
	go s.broadcastScreens()
	return s
}

// Close stops broadcasting.
func (s *Server) Close() {
	s.once.Do(func() { close(s.stopCh) })
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/screen", s.handleScreen)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/classify", s.handleClassify)

	// trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		trace.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleScreen(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.Latest())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, apperr.Newf(apperr.INVALID_ARGUMENT, "invalid limit %q", v))
			return
		}
		limit = n
	}
	entries := s.pipe.Recent(limit)
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Counts: s.pipe.Counts(), Frames: s.pipe.Stats()})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		writeError(w, r, apperr.Wrap(err, apperr.INVALID_ARGUMENT, "failed to read frame"))
		return
	}
	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		writeError(w, r, apperr.Wrap(err, apperr.FRAME_DECODE, "body is not a JPEG or PNG image"))
		return
	}

	snap, ok := s.pipe.Classify(r.Context(), img)
	trace.Logger(r.Context()).Debug("classified upload", "format", format, "kind", snap.Kind, "ok", ok)
	if !ok {
		writeError(w, r, apperr.New(apperr.NOT_FOUND, "screen recognized but no data extracted"))
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{EventType: snap.EventType, Data: snap.Data})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	rl := newRateLimiter()
	s.mu.Lock()
	s.conns[conn] = rl
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "invalid message"})
			continue
		}
		switch base.Type {
		case "ping":
			_ = wsjson.Write(ctx, conn, Message{Type: "pong"})
		default:
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + strconv.Quote(base.Type)})
		}
	}
}

func (s *Server) broadcastScreens() {
	events := s.pipe.Events()
	for {
		select {
		case <-s.stopCh:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.broadcast(ScreenMessage{Type: "screen", EventType: e.EventType, Data: e.Data, Timestamp: e.Timestamp})
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}

// Clients is the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
