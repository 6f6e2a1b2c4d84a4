package cmd

import (
	"log/slog"
	"os"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/logger"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
}

func Execute() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pvtz-sync",
		Short: "Keep private DNS address records in sync with ECS instances",
		Long: `pvtz-sync lists ECS instances, derives hostname to private address
mappings and converges the records it owns in a PrivateZone (or cloudflare)
zone. Records without the ownership remark are never touched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// until the config is loaded, honour the log env vars directly
			logger.Configure(os.Getenv("PVTZ_SYNC_LOG_LEVEL"), os.Getenv("PVTZ_SYNC_LOG_ENV"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to yaml config file (default $PVTZ_SYNC_CONFIG or pvtz-sync.yaml)")
	cmd.AddCommand(runCmd(opts), onceCmd(opts), planCmd(opts), verifyCmd(opts))
	return cmd
}
