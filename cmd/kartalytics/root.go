package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/kartalytics/internal/catalog"
	"github.com/GriffinCanCode/kartalytics/internal/config"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

// Version is the application version.
const Version = "0.1.0"

// skipCatalog marks commands that work without reference images.
const skipCatalog = "skip-catalog"

var (
	configPath string
	logLevel   string

	// cfg and refs are set by the root PersistentPreRunE
	cfg      *config.Config
	refs     *screens.References
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:           "kartalytics",
	Short:         "Mario Kart capture analyzer",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if closeLog, err = setupLogging(cfg, os.Stderr); err != nil {
			return err
		}

		if _, ok := cmd.Annotations[skipCatalog]; ok {
			return nil
		}
		if refs, err = catalog.Default(cfg.ReferencesDir); err != nil {
			return fmt.Errorf("failed to load references from %s: %w", cfg.ReferencesDir, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				slog.Warn("failed to close log file", "error", err)
			}
		}
	},
}

// Execute runs the CLI with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "INI file layered under the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
}
