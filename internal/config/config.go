// Package config loads service settings from the environment, optionally
// layered over an INI file
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
)

type Config struct {
	HTTPAddr    string
	HistorySize int

	ReferencesDir    string
	UnknownIntrosDir string

	EmitEnabled     bool
	KartalyticsURL  string
	EmitQueueSize   int
	EmitBatchSize   int
	EmitFlushDelay  time.Duration
	EmitMinInterval time.Duration

	StreamInput         string
	StreamFormat        string
	StreamWidth         int
	StreamHeight        int
	StreamMinFrameBytes int
	StoreFrames         bool
	FramesDir           string

	LogLevel string
	LogFile  string
}

func defaults() *Config {
	return &Config{
		HTTPAddr:            ":8000",
		HistorySize:         100,
		ReferencesDir:       "references",
		UnknownIntrosDir:    "unknown-intros",
		EmitEnabled:         true,
		EmitQueueSize:       2000,
		EmitBatchSize:       1,
		EmitMinInterval:     500 * time.Millisecond,
		StreamInput:         "/dev/video0",
		StreamFormat:        "v4l2",
		StreamWidth:         1920,
		StreamHeight:        1080,
		StreamMinFrameBytes: 20000,
		FramesDir:           "frames",
		LogLevel:            "info",
	}
}

// Load reads settings from the environment.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads an INI file and then the environment, which wins. An empty
// path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		f, err := ini.Load(path)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.CONFIG_INVALID, "failed to read config file %s", path)
		}
		cfg.applyINI(f)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyINI(f *ini.File) {
	server := f.Section("server")
	c.HTTPAddr = server.Key("addr").MustString(c.HTTPAddr)
	c.HistorySize = server.Key("history_size").MustInt(c.HistorySize)

	analyzer := f.Section("analyzer")
	c.ReferencesDir = analyzer.Key("references_dir").MustString(c.ReferencesDir)
	c.UnknownIntrosDir = analyzer.Key("unknown_intros_dir").MustString(c.UnknownIntrosDir)

	emit := f.Section("emit")
	c.EmitEnabled = emit.Key("enabled").MustBool(c.EmitEnabled)
	c.KartalyticsURL = emit.Key("url").MustString(c.KartalyticsURL)
	c.EmitQueueSize = emit.Key("queue_size").MustInt(c.EmitQueueSize)
	c.EmitBatchSize = emit.Key("batch_size").MustInt(c.EmitBatchSize)
	c.EmitFlushDelay = emit.Key("flush_delay").MustDuration(c.EmitFlushDelay)
	c.EmitMinInterval = emit.Key("min_interval").MustDuration(c.EmitMinInterval)

	stream := f.Section("stream")
	c.StreamInput = stream.Key("input").MustString(c.StreamInput)
	c.StreamFormat = stream.Key("format").MustString(c.StreamFormat)
	c.StreamWidth = stream.Key("width").MustInt(c.StreamWidth)
	c.StreamHeight = stream.Key("height").MustInt(c.StreamHeight)
	c.StreamMinFrameBytes = stream.Key("min_frame_bytes").MustInt(c.StreamMinFrameBytes)
	c.StoreFrames = stream.Key("store_frames").MustBool(c.StoreFrames)
	c.FramesDir = stream.Key("frames_dir").MustString(c.FramesDir)

	log := f.Section("log")
	c.LogLevel = log.Key("level").MustString(c.LogLevel)
	c.LogFile = log.Key("file").MustString(c.LogFile)
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.HistorySize = getEnvInt("HISTORY_SIZE", c.HistorySize)
	c.ReferencesDir = getEnv("REFERENCES_DIR", c.ReferencesDir)
	c.UnknownIntrosDir = getEnv("UNKNOWN_INTROS_DIR", c.UnknownIntrosDir)
	c.EmitEnabled = getEnvBool("EMIT_ENABLED", c.EmitEnabled)
	c.KartalyticsURL = getEnv("KARTALYTICS_URL", c.KartalyticsURL)
	c.EmitQueueSize = getEnvInt("EMIT_QUEUE_SIZE", c.EmitQueueSize)
	c.EmitBatchSize = getEnvInt("EMIT_BATCH_SIZE", c.EmitBatchSize)
	c.EmitFlushDelay = getEnvDuration("EMIT_FLUSH_DELAY", c.EmitFlushDelay)
	c.EmitMinInterval = time.Duration(getEnvInt("EMIT_MIN_INTERVAL_MS", int(c.EmitMinInterval/time.Millisecond))) * time.Millisecond
	c.StreamInput = getEnv("STREAM_INPUT", c.StreamInput)
	c.StreamFormat = getEnv("STREAM_FORMAT", c.StreamFormat)
	c.StreamWidth = getEnvInt("STREAM_WIDTH", c.StreamWidth)
	c.StreamHeight = getEnvInt("STREAM_HEIGHT", c.StreamHeight)
	c.StreamMinFrameBytes = getEnvInt("STREAM_MIN_FRAME_BYTES", c.StreamMinFrameBytes)
	c.StoreFrames = getEnvBool("STORE_FRAMES", c.StoreFrames)
	c.FramesDir = getEnv("FRAMES_DIR", c.FramesDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	switch {
	case c.EmitQueueSize < 0:
		return apperr.Newf(apperr.CONFIG_INVALID, "emit queue size %d is negative", c.EmitQueueSize)
	case c.EmitBatchSize < 0:
		return apperr.Newf(apperr.CONFIG_INVALID, "emit batch size %d is negative", c.EmitBatchSize)
	case c.HistorySize <= 0:
		return apperr.Newf(apperr.CONFIG_INVALID, "history size must be positive, got %d", c.HistorySize)
	case c.StreamWidth <= 0 || c.StreamHeight <= 0:
		return apperr.Newf(apperr.CONFIG_INVALID, "invalid capture size %dx%d", c.StreamWidth, c.StreamHeight)
	case c.ReferencesDir == "":
		return apperr.New(apperr.CONFIG_INVALID, "references directory is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// ValidateEmit additionally requires an ingest URL when emission is on.
func (c *Config) ValidateEmit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EmitEnabled && c.KartalyticsURL == "" {
		return apperr.New(apperr.CONFIG_INVALID, "KARTALYTICS_URL is required when emitting")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, apperr.Wrapf(err, apperr.CONFIG_INVALID, "invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvDuration accepts Go durations ("250ms") or bare milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
