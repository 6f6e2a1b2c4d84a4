package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/reconcile"
	"github.com/spf13/cobra"
)

func planCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the operations the next cycle would apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
}

func runPlan(ctx context.Context, w io.Writer, opts *options) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.engine.Plan(ctx)
	if err != nil {
		// partial listings still produce a plan, show it
		slog.Warn("Plan built from incomplete listing", "error", err)
	}
	return printPlan(w, a.cfg.DNS.Domain, summary)
}

func printPlan(w io.Writer, domain string, summary reconcile.Summary) error {
	for _, op := range summary.Plan.Operations {
		if _, err := fmt.Fprintln(w, formatOperation(domain, op)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d to add, %d to remove (%d hosts, %d owned records)\n",
		summary.Plan.Added, summary.Plan.Removed, summary.Hosts, summary.Owned)
	return err
}

func formatOperation(domain string, op reconcile.Operation) string {
	name := op.Hostname + "." + domain
	if op.Kind == reconcile.OpRemove {
		return fmt.Sprintf("- %s -> %s (%s)", name, op.Address, op.RecordID)
	}
	return fmt.Sprintf("+ %s -> %s", name, op.Address)
}
