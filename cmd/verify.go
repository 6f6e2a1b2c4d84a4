package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/verify"
	"github.com/spf13/cobra"
)

func verifyCmd(opts *options) *cobra.Command {
	var nameserver string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every instance hostname resolves to its private addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), opts, nameserver)
		},
	}
	cmd.Flags().StringVar(&nameserver, "nameserver", "", "Nameserver to query (default $PVTZ_SYNC_VERIFY_NAMESERVER)")
	return cmd
}

func runVerify(ctx context.Context, w io.Writer, opts *options, nameserver string) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	hosts, err := a.engine.Desired(ctx)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	cfg := a.cfg.Verify
	if nameserver != "" {
		cfg.Nameserver = nameserver
	}
	mismatches := verify.New(cfg, a.cfg.DNS.Domain).Check(ctx, hosts)
	if err := printMismatches(w, mismatches); err != nil {
		return err
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d hosts do not resolve as expected", len(mismatches), len(hosts))
	}
	return nil
}

func printMismatches(w io.Writer, mismatches []verify.Mismatch) error {
	for _, m := range mismatches {
		line := fmt.Sprintf("%s: want [%s] got [%s]", m.Hostname, strings.Join(m.Want, " "), strings.Join(m.Got, " "))
		if m.Error != "" {
			line += " error: " + m.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
