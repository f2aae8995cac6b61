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
	"github.com/spf13/viper"

	"iifvs/internal/config"
	"iifvs/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the firmware analysis API",
		Long: `Starts the HTTP API that accepts firmware uploads on /upload and proxies
CVE searches on /nvd-search. A Prometheus endpoint is served on the metrics
port unless metrics.enabled is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config.Current(), slog.Default())
		},
	}

	cmd.Flags().IntP("port", "p", 5000, "Port to listen on")
	cmd.Flags().String("upload-dir", "uploads", "Directory uploaded firmware is written to")
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("upload.dir", cmd.Flags().Lookup("upload-dir"))

	return cmd
}

func runServe(ctx context.Context, s config.Settings, logger *slog.Logger) error {
	if err := os.MkdirAll(s.Upload.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	a, err := newApp(s, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if s.Metrics.Enabled {
		srv, err := telemetry.StartMetricsServer(fmt.Sprintf(":%d", s.Metrics.Port), a.metrics.Handler())
		if err != nil {
			logger.Warn("Failed to start metrics server", "port", s.Metrics.Port, "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}
	}

	logger.Info("Starting IIFVS API",
		"host", s.Server.Host,
		"port", s.Server.Port,
		"upload_dir", s.Upload.Dir,
		"extractor", s.Extractor.Mode,
		"store", s.Store.Type,
		"notifications", a.notifier.Enabled())

	return a.server().Start(ctx)
}
