package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func onceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sync cycle and exit",
		Long: `Run a single sync cycle and exit. The exit status is non-zero when
listing was incomplete or any operation failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
}

func runOnce(ctx context.Context, opts *options) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.engine.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if n := len(summary.Results.Failures); n > 0 {
		return fmt.Errorf("sync: %d of %d operations failed", n, len(summary.Plan.Operations))
	}
	return nil
}
