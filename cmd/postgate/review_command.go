package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postgate/internal/reviewer"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var (
		once    bool
		name    string
		poll    time.Duration
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review pending items interactively, oldest first",
		Long: `Present each pending item and record your decision.

Answer y to approve, n to reject, s to skip for this session, or q to quit.
When nothing is pending the reviewer waits and checks again; use --once to
exit instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(env serviceEnv) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				actor := strings.TrimSpace(name)
				if actor == "" {
					actor = env.cfg.Reviewer.Name
				}
				interval := poll
				if interval <= 0 {
					interval = env.cfg.ReviewerPollInterval()
				}
				opts := reviewer.Options{
					In:           cmd.InOrStdin(),
					Out:          cmd.OutOrStdout(),
					PollInterval: interval,
					Actor:        actor,
					Logger:       env.logger,
					Once:         once,
				}
				if noColor {
					off := false
					opts.Color = &off
				}

				summary, err := reviewer.New(env.svc, opts).Run(runCtx)
				fmt.Fprintf(cmd.OutOrStdout(), "Session: %d approved, %d rejected, %d skipped, %d missed\n",
					summary.Approved, summary.Rejected, summary.Skipped, summary.Missed)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Exit when nothing is left to review instead of waiting")
	cmd.Flags().StringVar(&name, "as", "", "Reviewer name recorded on decisions (default reviewer.name)")
	cmd.Flags().DurationVar(&poll, "poll", 0, "Wait between checks of an empty queue (default reviewer.poll_interval_seconds)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	return cmd
}
