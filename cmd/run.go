package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/scheduler"
	"github.com/spf13/cobra"
)

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), opts)
		},
	}
}

func runLoop(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if last, ok, err := a.journal.LastCycle(ctx); err != nil {
		slog.Warn("Failed to read previous cycle", "error", err)
	} else if ok {
		slog.Info("Previous sync cycle", "cycle", last.ID, "started", last.Started,
			"added", last.Added, "removed", last.Removed, "failures", len(last.Failures))
	}

	var server *http.Server
	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		server = &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Start http server in background
		go func() {
			slog.Info("Starting metrics server", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	slog.Info("Starting pvtz-sync service", "interval", a.cfg.SyncInterval, "provider", a.cfg.DNS.Provider,
		"domain", a.cfg.DNS.Domain, "dry_run", a.cfg.Reconcile.DryRun)

	scheduler.Run(ctx, a.cfg.SyncInterval, func(ctx context.Context) {
		if _, err := a.engine.Sync(ctx); err != nil {
			slog.Error("Sync operation failed", "error", err)
		}
	})
	slog.Info("Shutdown signal received")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	slog.Info("Service shutdown complete")
	return nil
}
