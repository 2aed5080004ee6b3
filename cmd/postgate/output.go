package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"postgate/internal/queue"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// singleLine collapses whitespace so multi-line content fits a table cell.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

func relativeTo(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// deadlineLabel describes when a pending item expires or when a terminal item
// was decided.
func deadlineLabel(item *queue.Item, now time.Time) string {
	switch {
	case item.IsTerminal() && item.DecidedAt != nil:
		return "decided " + relativeTo(*item.DecidedAt, now)
	case item.Expired(now):
		return "expired " + relativeTo(item.ExpiresAt, now)
	default:
		return "expires " + relativeTo(item.ExpiresAt, now)
	}
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
