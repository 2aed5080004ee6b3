package main

import (
	"github.com/spf13/cobra"

	"postgate/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sweeper and HTTP review server in the foreground",
		Long: `Run the long-lived postgate process.

The daemon rejects pending items once their deadline passes, applies the
configured retention, and serves the HTTP review API and web page on
paths.api_bind. Only one daemon may run per data directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	return cmd
}
