package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory/ecs"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/logger"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider/cloudflare"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider/pvtz"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/reconcile"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/state"
)

// app holds everything a command needs for one process lifetime.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	journal state.Manager
	engine  reconcile.Engine
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	m := metrics.New(cfg.MetricsAddr != "")

	journal, err := state.New(cfg.StatePath, m)
	if err != nil {
		return nil, fmt.Errorf("initialize state manager: %w", err)
	}

	src, err := ecs.New(cfg.Aliyun, cfg.Inventory, m)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("initialize inventory: %w", err)
	}

	dp, err := newProvider(cfg, m)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("initialize dns provider: %w", err)
	}

	engine, err := reconcile.NewEngine(ctx, src, dp, journal, cfg, m)
	if err != nil {
		journal.Close()
		return nil, err
	}

	return &app{cfg: cfg, metrics: m, journal: journal, engine: engine}, nil
}

func newProvider(cfg *config.Config, m *metrics.Metrics) (provider.Provider, error) {
	switch cfg.DNS.Provider {
	case "cloudflare":
		cf, err := cloudflare.New(cfg.DNS, m)
		if err != nil {
			return nil, err
		}
		return cf, nil
	case "pvtz":
		p, err := pvtz.New(cfg.Aliyun, cfg.DNS, m)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown dns provider %q", cfg.DNS.Provider)
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		slog.Error("Failed to close state manager", "error", err)
	}
}
