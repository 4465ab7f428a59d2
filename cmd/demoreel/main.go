// Command demoreel runs the demo-video tool server: screen capture,
// narration synthesis, audio/video sync, and timeline assembly, exposed as
// line-delimited JSON tools over stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/demoreel/demoreel/internal/capture"
	"github.com/demoreel/demoreel/internal/check"
	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/display"
	"github.com/demoreel/demoreel/internal/logging"
	"github.com/demoreel/demoreel/internal/server"
	"github.com/demoreel/demoreel/internal/tools"
)

// Set at build time with -ldflags.
var version = "dev"

var (
	cfgFile     string
	flagColor   string
	flagLog     string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "demoreel",
		Short:         "Narrated screen-capture demo video server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().StringVar(&flagColor, "color", "", "color mode: auto, always, never")
	root.PersistentFlags().StringVar(&flagLog, "log", "", "append logs to this file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(serveCmd(), checkCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, then applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if flagColor != "" {
		cfg.ColorMode = config.ColorMode(flagColor)
	}
	if flagLog != "" {
		cfg.LogFile = flagLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner()
			log.Info("demoreel %s", version)

			if err := check.CheckDeps(cfg); err != nil {
				return err
			}
			if err := cfg.EnsureRecordingsDir(); err != nil {
				return err
			}
			if n, err := capture.CleanOrphans(cfg.RecordingsDir, log); err == nil && n > 0 {
				log.Warn("cleaned %d orphaned capture processes", n)
			}

			tb, err := tools.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.Warn("received %s, shutting down", sig)
				cancel()
			}()

			log.Success("serving tools on stdio (recordings in %s)", cfg.RecordingsDir)
			err = server.Serve(ctx, tb, log, os.Stdin, os.Stdout)

			// Stop any live recording so the artifact gets finalized.
			if closeErr := tb.Close(context.Background()); closeErr != nil {
				log.Error("shutdown: %v", closeErr)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Diagnose ffmpeg, capture, and speech availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()
			check.RunCheck(cfg, log)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("demoreel", version)
		},
	}
}
