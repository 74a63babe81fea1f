package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/kartalytics/internal/analyzer"
	"github.com/GriffinCanCode/kartalytics/internal/emit"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
	"github.com/GriffinCanCode/kartalytics/internal/stream"
)

var analyzeEmit bool

// analyzeResult is one line of analyze output.
type analyzeResult struct {
	File      string          `json:"file"`
	EventType string          `json:"event_type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files|dirs>...",
	Short: "Classify screenshots and print one JSON line per image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectImages(args)
		if err != nil {
			return err
		}

		var poster *emit.Poster
		if analyzeEmit {
			if err := cfg.ValidateEmit(); err != nil {
				return err
			}
			poster, err = emit.NewPoster(emit.PosterConfig{
				URL:        cfg.KartalyticsURL,
				QueueSize:  max(cfg.EmitQueueSize, len(files)),
				BatchSize:  cfg.EmitBatchSize,
				FlushDelay: cfg.EmitFlushDelay,
			})
			if err != nil {
				return err
			}
			defer poster.Stop()
		}

		classifier := analyzer.New(refs, analyzer.WithLogger(slog.Default()))
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("analyzing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		enc := json.NewEncoder(cmd.OutOrStdout())

		for _, path := range files {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			res := analyzeFile(classifier, path)
			bar.Add(1)
			if err := enc.Encode(res); err != nil {
				return err
			}
			if poster != nil && res.EventType != "" && res.EventType != screens.KindUnknown.EventType() {
				poster.Queue(emit.Event{EventType: res.EventType, Data: res.Data, Timestamp: time.Now().UTC()})
			}
		}
		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeEmit, "emit", false, "also post each classified screen to KARTALYTICS_URL")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeFile(c *analyzer.Classifier, path string) analyzeResult {
	res := analyzeResult{File: path}
	frame, err := stream.ReadFrame(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	s, ok := c.Classify(frame.Image)
	if !ok || s == nil {
		res.Error = "matched screen has no data"
		return res
	}
	res.EventType = screens.EventType(s)
	if res.Data, err = screens.Marshal(s); err != nil {
		res.Error = err.Error()
	}
	return res
}

// collectImages expands directories to their images and keeps explicitly
// named files as given.
func collectImages(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := (&stream.DirSource{Dir: arg}).Files()
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
