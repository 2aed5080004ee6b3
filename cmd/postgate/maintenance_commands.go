package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reject pending items whose deadline has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(env serviceEnv) error {
				count, err := env.svc.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %s pending %s\n", humanize.Comma(count), plural(count, "item", "items"))
				return nil
			})
		},
	}
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete pending items submitted longer ago than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return errors.New("--max-age must be a positive duration")
			}
			return ctx.withService(func(env serviceEnv) error {
				count, err := env.svc.CleanupOld(cmd.Context(), maxAge)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s stale pending %s\n", humanize.Comma(count), plural(count, "item", "items"))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Delete pending items older than this (e.g. 72h)")
	_ = cmd.MarkFlagRequired("max-age")
	return cmd
}

func newPurgeDecidedCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "purge-decided",
		Short: "Delete approved and rejected items decided longer ago than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return errors.New("--max-age must be a positive duration")
			}
			return ctx.withService(func(env serviceEnv) error {
				count, err := env.svc.PurgeDecided(cmd.Context(), maxAge)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %s decided %s\n", humanize.Comma(count), plural(count, "item", "items"))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Delete decided items older than this (e.g. 720h)")
	_ = cmd.MarkFlagRequired("max-age")
	return cmd
}

func plural(count int64, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}
