package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"postgate/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check queue database health and counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(env serviceEnv) error {
				health, err := env.svc.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				status, err := env.svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"database": health,
						"queue":    status,
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range healthLines(health, status.Counts, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print diagnostics as JSON")
	return cmd
}

func healthLines(health queue.DatabaseHealth, counts map[string]int, colorize bool) []string {
	lines := renderSectionHeader("Database", colorize)
	lines = append(lines,
		renderStatusLine("Path", statusInfo, health.DBPath, false),
		renderStatusLine("Schema version", schemaKind(health), fmt.Sprintf("%d", health.SchemaVersion), colorize),
		renderStatusLine("Integrity", boolKind(health.IntegrityCheck, statusError), yesNo(health.IntegrityCheck), colorize),
		renderStatusLine("Free space", freeSpaceKind(health.FreeBytes), humanize.IBytes(health.FreeBytes), colorize),
	)
	if len(health.MissingColumns) > 0 {
		lines = append(lines, renderStatusLine("Missing columns", statusError, strings.Join(health.MissingColumns, ", "), colorize))
	}
	if health.Error != "" {
		lines = append(lines, renderStatusLine("Error", statusError, health.Error, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	total := 0
	for _, status := range queue.AllStatuses() {
		count := counts[string(status)]
		total += count
		lines = append(lines, renderStatusLine(string(status), statusInfo, humanize.Comma(int64(count)), false))
	}
	lines = append(lines, renderStatusLine("total", statusInfo, humanize.Comma(int64(total)), false))
	return lines
}

func schemaKind(health queue.DatabaseHealth) statusKind {
	if health.TableExists && len(health.MissingColumns) == 0 && health.SchemaVersion == queue.SchemaVersion() {
		return statusOK
	}
	return statusWarn
}

func boolKind(ok bool, failure statusKind) statusKind {
	if ok {
		return statusOK
	}
	return failure
}

// freeSpaceKind warns below 100 MiB.
func freeSpaceKind(free uint64) statusKind {
	if free < 100<<20 {
		return statusWarn
	}
	return statusOK
}
