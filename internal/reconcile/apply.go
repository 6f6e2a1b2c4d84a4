package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
)

// Applier executes planned operations against a zone. Every operation is
// attempted independently; a failure is recorded and the next one runs.
type Applier struct {
	provider provider.Provider
	zone     string
	domain   string
	remark   string
	ttl      time.Duration
	dryRun   bool
	metrics  *metrics.Metrics
}

type ApplierOptions struct {
	Zone   string
	Domain string
	Remark string
	TTL    time.Duration
	DryRun bool
}

func NewApplier(p provider.Provider, opts ApplierOptions, metrics *metrics.Metrics) *Applier {
	return &Applier{
		provider: p,
		zone:     opts.Zone,
		domain:   opts.Domain,
		remark:   opts.Remark,
		ttl:      opts.TTL,
		dryRun:   opts.DryRun,
		metrics:  metrics,
	}
}

func (a *Applier) Apply(ctx context.Context, log *slog.Logger, plan Plan) Results {
	if log == nil {
		log = slog.Default()
	}
	results := Results{}

	if a.dryRun {
		for _, op := range plan.Operations {
			log.Info("Dry run mode - would "+op.Kind.String()+" record",
				"id", op.RecordID, "name", a.fqdn(op.Hostname), "ip", op.Address)
		}
		results.Added = plan.Added
		results.Removed = plan.Removed
		return results
	}

	for _, op := range plan.Operations {
		var err error
		switch op.Kind {
		case OpAdd:
			log.Info("Add record", "name", a.fqdn(op.Hostname), "ip", op.Address)
			err = a.add(ctx, log, op)
		case OpRemove:
			log.Info("Remove record", "id", op.RecordID, "name", a.fqdn(op.Hostname), "ip", op.Address)
			err = a.remove(ctx, op)
		default:
			err = fmt.Errorf("unknown operation kind %d", op.Kind)
		}

		a.metrics.IncDNSOperation(op.Kind.String(), a.zone, err == nil)
		if err != nil {
			log.Warn("Failed to "+op.Kind.String()+" record",
				"id", op.RecordID, "name", a.fqdn(op.Hostname), "ip", op.Address, "error", err)
			results.Failures = append(results.Failures, OperationResult{
				Operation: op,
				Error:     err.Error(),
			})
			continue
		}
		if op.Kind == OpAdd {
			results.Added++
		} else {
			results.Removed++
		}
	}
	return results
}

func (a *Applier) add(ctx context.Context, log *slog.Logger, op Operation) error {
	record, err := provider.AddressRecord(op.Hostname, op.Address, a.ttl)
	if err != nil {
		return err
	}

	created, err := a.provider.CreateRecord(ctx, a.zone, record)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	if err := a.provider.AnnotateRecord(ctx, a.zone, created, a.remark); err != nil {
		// The record exists but is not owned, later cycles will not see it.
		log.Error("Record created without ownership remark", "id", created.ID, "name", a.fqdn(op.Hostname), "ip", op.Address)
		return fmt.Errorf("annotate record %s: %w", created.ID, err)
	}
	return nil
}

func (a *Applier) remove(ctx context.Context, op Operation) error {
	record := provider.Record{
		ID:   op.RecordID,
		Name: op.Hostname,
		Data: op.Address,
		Zone: a.zone,
	}
	if err := a.provider.DeleteRecord(ctx, a.zone, record); err != nil {
		return fmt.Errorf("delete record %s: %w", op.RecordID, err)
	}
	return nil
}

func (a *Applier) fqdn(hostname string) string {
	if a.domain == "" {
		return hostname
	}
	return hostname + "." + a.domain
}
