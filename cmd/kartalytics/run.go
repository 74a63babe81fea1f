package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/kartalytics/internal/analyzer"
	"github.com/GriffinCanCode/kartalytics/internal/emit"
	"github.com/GriffinCanCode/kartalytics/internal/history"
	"github.com/GriffinCanCode/kartalytics/internal/pipeline"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
	"github.com/GriffinCanCode/kartalytics/internal/server"
	"github.com/GriffinCanCode/kartalytics/internal/stream"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	input       string
	format      string
	storeFrames bool
	noEmit      bool
	addr        string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify a live capture device or video file and serve the results",
	Long: `Reads frames from a capture device (through ffmpeg), a video file or a
directory of images, classifies each frame and posts new screens to
KARTALYTICS_URL. The latest screen and recent history are served over HTTP
and streamed on /ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd)
		return runPipeline(cmd.Context())
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.input, "input", "i", "", "capture device, video file or image directory (default from STREAM_INPUT)")
	f.StringVar(&runOpts.format, "format", "", "ffmpeg input format such as v4l2 or avfoundation (default from STREAM_FORMAT)")
	f.BoolVar(&runOpts.storeFrames, "store-frames", false, "write every captured frame under FRAMES_DIR")
	f.BoolVar(&runOpts.noEmit, "no-emit", false, "log screens instead of posting them")
	f.StringVar(&runOpts.addr, "addr", "", "HTTP listen address (default from HTTP_ADDR)")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags lets explicitly set flags override the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("input") {
		cfg.StreamInput = runOpts.input
		if !f.Changed("format") && isRegularFile(cfg.StreamInput) {
			cfg.StreamFormat = ""
		}
	}
	if f.Changed("format") {
		cfg.StreamFormat = runOpts.format
	}
	if f.Changed("store-frames") {
		cfg.StoreFrames = runOpts.storeFrames
	}
	if runOpts.noEmit {
		cfg.EmitEnabled = false
	}
	if f.Changed("addr") {
		cfg.HTTPAddr = runOpts.addr
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func newSource(log *slog.Logger) stream.Source {
	if info, err := os.Stat(cfg.StreamInput); err == nil && info.IsDir() {
		return &stream.DirSource{Dir: cfg.StreamInput, Log: log}
	}
	return &stream.FFmpegSource{
		Input:         cfg.StreamInput,
		Format:        cfg.StreamFormat,
		Width:         cfg.StreamWidth,
		Height:        cfg.StreamHeight,
		MinFrameBytes: cfg.StreamMinFrameBytes,
		Log:           log,
	}
}

// newEmitter returns the emitter and, when posting, the poster to stop.
func newEmitter(log *slog.Logger) (*emit.Emitter, *emit.Poster, error) {
	opts := []emit.Option{emit.WithMinInterval(cfg.EmitMinInterval), emit.WithLogger(log)}
	if !cfg.EmitEnabled {
		log.Info("emitting disabled, screens are only logged")
		return emit.NewEmitter(nil, opts...), nil, nil
	}
	if err := cfg.ValidateEmit(); err != nil {
		return nil, nil, err
	}
	poster, err := emit.NewPoster(emit.PosterConfig{
		URL:        cfg.KartalyticsURL,
		QueueSize:  cfg.EmitQueueSize,
		BatchSize:  cfg.EmitBatchSize,
		FlushDelay: cfg.EmitFlushDelay,
		Log:        log,
	})
	if err != nil {
		return nil, nil, err
	}
	return emit.NewEmitter(poster, opts...), poster, nil
}

func runPipeline(ctx context.Context) error {
	log := slog.Default()

	emitter, poster, err := newEmitter(log)
	if err != nil {
		return err
	}
	if poster != nil {
		defer poster.Stop()
	}

	classifier := analyzer.New(refs,
		analyzer.WithUnknownIntroSink(screens.IntroArchive{Dir: cfg.UnknownIntrosDir}),
		analyzer.WithLogger(log))
	pcfg := pipeline.Config{
		Source:     newSource(log),
		Classifier: classifier,
		Emitter:    emitter,
		History:    history.NewStore(cfg.HistorySize, history.DefaultEventBuffer),
		Log:        log,
	}
	if cfg.StoreFrames {
		saver, err := stream.NewFrameSaver(cfg.FramesDir, time.Now(), log)
		if err != nil {
			return err
		}
		log.Info("storing frames", "dir", saver.Dir())
		pcfg.Saver = saver
	}

	manager, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}
	if err := manager.Start(ctx); err != nil {
		return err
	}

	srv := server.New(manager, log)
	defer srv.Close()
	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		log.Info("kartalytics starting", "http", cfg.HTTPAddr, "input", cfg.StreamInput, "emit", cfg.EmitEnabled)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	pipeErr := make(chan error, 1)
	go func() { pipeErr <- manager.Wait() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case runErr = <-pipeErr:
		log.Info("input finished")
	case runErr = <-httpErr:
		log.Error("http server error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	manager.Stop()
	log.Info("shutdown complete", "stats", manager.Stats())
	return runErr
}
