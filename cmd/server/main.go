// Package main is the entry point for the vidshare web client.
//
// MAIN PACKAGE IN GO:
// main stays minimal: it builds the command line, and the serve command
// reads configuration, creates the logger and tracer, and starts the server.
// All actual logic lives in internal/ packages.
//
// Usage:
//
//	vidshare serve [--config vidshare.yaml]
//	vidshare version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/vidshare/internal/config"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/server"
	"github.com/sakif/vidshare/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidshare",
		Short:         "Server-rendered web client for the video sharing API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to config file (default: ./vidshare.yaml if present)")

	root.AddCommand(newServeCommand(), newVersionCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}

			logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			// Ctrl+C or SIGTERM cancels ctx, which shuts the server down.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracing, err := telemetry.Setup(ctx, telemetry.Options{
				Enabled:        cfg.Tracing.Enabled,
				ServiceName:    cfg.Tracing.ServiceName,
				ServiceVersion: version,
			})
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracing.Shutdown(shutdownCtx); err != nil {
					logger.Warn("flushing traces", slog.String("error", err.Error()))
				}
			}()

			srv, err := server.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Start(ctx)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
