package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
	"github.com/google/uuid"
)

// Journal records the outcome of each cycle.
type Journal interface {
	SaveCycle(ctx context.Context, s Summary) error
}

type Engine interface {
	Sync(ctx context.Context) (Summary, error)
	Plan(ctx context.Context) (Summary, error)
	Desired(ctx context.Context) ([]DesiredHost, error)
}

type engine struct {
	source   inventory.Source
	provider provider.Provider
	journal  Journal
	applier  *Applier
	metrics  *metrics.Metrics
	zone     string
	remark   string
	dryRun   bool
}

// NewEngine resolves the zone for the configured domain once. A zone that
// cannot be resolved to exactly one id is returned as an error and must stop
// the process.
func NewEngine(ctx context.Context, src inventory.Source, dp provider.Provider, journal Journal, cfg *config.Config, metrics *metrics.Metrics) (Engine, error) {
	zone, err := dp.ResolveZone(ctx, cfg.DNS.Domain)
	if err != nil {
		return nil, fmt.Errorf("resolve zone for %s: %w", cfg.DNS.Domain, err)
	}
	slog.Info("Using zone", "provider", dp.Name(), "domain", cfg.DNS.Domain, "zone", zone)

	applier := NewApplier(dp, ApplierOptions{
		Zone:   zone,
		Domain: cfg.DNS.Domain,
		Remark: cfg.Reconcile.Remark,
		TTL:    time.Duration(cfg.DNS.TTL) * time.Second,
		DryRun: cfg.Reconcile.DryRun,
	}, metrics)

	return &engine{
		source:   src,
		provider: dp,
		journal:  journal,
		applier:  applier,
		metrics:  metrics,
		zone:     zone,
		remark:   cfg.Reconcile.Remark,
		dryRun:   cfg.Reconcile.DryRun,
	}, nil
}

// Sync runs one full cycle. Listing failures do not stop the cycle: the
// partial snapshots are reconciled and the listing errors are returned along
// with the summary.
func (e *engine) Sync(ctx context.Context) (Summary, error) {
	summary, log, listErr := e.plan(ctx)

	summary.Results = e.applier.Apply(ctx, log, summary.Plan)
	summary.Duration = time.Since(summary.Started)

	switch {
	case summary.Plan.IsEmpty():
		log.Info("Sync checked, already up to date", "hosts", summary.Hosts, "owned", summary.Owned)
	case len(summary.Results.Failures) > 0:
		log.Warn("Sync completed with failures",
			"added", summary.Results.Added,
			"removed", summary.Results.Removed,
			"failed", len(summary.Results.Failures),
			"dry_run", e.dryRun)
	default:
		log.Info("Sync successful",
			"added", summary.Plan.Added,
			"removed", summary.Plan.Removed,
			"failed", len(summary.Results.Failures),
			"dry_run", e.dryRun)
	}

	success := listErr == nil && len(summary.Results.Failures) == 0
	e.metrics.IncSyncRun(success)
	e.metrics.SetSyncDuration(summary.Duration)
	e.metrics.SetLastSync(summary.Started.Add(summary.Duration))

	if e.journal != nil {
		if err := e.journal.SaveCycle(ctx, summary); err != nil {
			log.Warn("Failed to save cycle", "error", err)
		}
	}
	return summary, listErr
}

// Plan computes the operations for the current state without applying them.
func (e *engine) Plan(ctx context.Context) (Summary, error) {
	summary, _, err := e.plan(ctx)
	summary.Duration = time.Since(summary.Started)
	return summary, err
}

func (e *engine) Desired(ctx context.Context) ([]DesiredHost, error) {
	instances, err := e.source.ListInstances(ctx)
	return DesiredState(instances), err
}

func (e *engine) plan(ctx context.Context) (Summary, *slog.Logger, error) {
	summary := Summary{
		CycleID: uuid.NewString(),
		Started: time.Now(),
		DryRun:  e.dryRun,
	}
	log := slog.With("cycle", summary.CycleID)
	log.Debug("Starting sync cycle", "zone", e.zone)

	var errs []error
	instances, err := e.source.ListInstances(ctx)
	if err != nil {
		log.Error("Failed to list instances, continuing with partial inventory", "count", len(instances), "error", err)
		errs = append(errs, fmt.Errorf("list instances: %w", err))
	}
	desired := DesiredState(instances)
	summary.Hosts = len(desired)
	e.metrics.SetInventoryHosts(summary.Hosts)

	records, err := e.provider.GetRecords(ctx, e.zone)
	if err != nil {
		log.Error("Failed to get records, continuing with partial records", "count", len(records), "error", err)
		errs = append(errs, fmt.Errorf("get records: %w", err))
	}
	actual := ActualState(records, e.remark)
	summary.Owned = CountRecords(actual)
	e.metrics.SetOwnedRecords(summary.Owned)

	summary.Plan = Reconcile(desired, actual)
	log.Debug("Computed plan", "hosts", summary.Hosts, "owned", summary.Owned,
		"add", summary.Plan.Added, "remove", summary.Plan.Removed)

	listErr := errors.Join(errs...)
	if listErr != nil {
		summary.Partial = true
		summary.ListError = listErr.Error()
	}
	return summary, log, listErr
}
