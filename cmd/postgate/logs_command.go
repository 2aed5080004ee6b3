package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postgate/internal/logs"
)

const logsFollowWait = time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		raw    bool
		filter logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current daemon run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch strings.ToLower(filter.MinLevel) {
			case "", "debug", "info", "warn", "error":
			default:
				return fmt.Errorf("--level must be one of debug, info, warn, error; got %q", filter.MinLevel)
			}
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}

			path, err := logs.CurrentPath(cfg.Paths.LogDir)
			if err != nil {
				if errors.Is(err, logs.ErrNoRunLog) {
					return fmt.Errorf("no daemon log in %s (has `postgate daemon` run yet?)", cfg.Paths.LogDir)
				}
				return err
			}

			runCtx := cmd.Context()
			if follow {
				var stop context.CancelFunc
				runCtx, stop = signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
				defer stop()
			}
			return streamLog(runCtx, cmd.OutOrStdout(), path, lines, follow, raw, filter)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines as written")
	cmd.Flags().StringVar(&filter.ItemID, "item", "", "Only show lines for this item id")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show lines from this component (queue, sweeper, http, ...)")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show")
	return cmd
}

func streamLog(ctx context.Context, out io.Writer, path string, lines int, follow, raw bool, filter logs.Filter) error {
	emit := func(batch []string) {
		for _, line := range batch {
			if !filter.Match(line) {
				continue
			}
			if !raw {
				line = logs.Render(line)
			}
			fmt.Fprintln(out, line)
		}
	}

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	emit(result.Lines)

	offset := result.Offset
	for follow {
		result, err = logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: logsFollowWait})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		emit(result.Lines)
		offset = result.Offset
	}
	return nil
}
