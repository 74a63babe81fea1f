package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/GriffinCanCode/kartalytics/internal/config"
	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
)

// setupLogging installs the default logger: text to w, and appended to
// LOG_FILE when set. The returned func closes the file.
func setupLogging(cfg *config.Config, w io.Writer) (func() error, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	closer := func() error { return nil }

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.CONFIG_INVALID, "couldn't open %s for logging", cfg.LogFile)
		}
		handler = fanout{handler, slog.NewTextHandler(f, opts)}
		closer = f.Close
	}

	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, c := range h {
		if c.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, c := range h {
		if c.Enabled(ctx, r.Level) {
			errs = append(errs, c.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, c := range h {
		out[i] = c.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, c := range h {
		out[i] = c.WithGroup(name)
	}
	return out
}
