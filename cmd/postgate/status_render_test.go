package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"postgate/internal/queue"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Schema version", statusOK, "1", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Schema version:", "[OK] 1")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Integrity", statusError, "no", true)
	if !strings.HasPrefix(got, ansiRed) {
		t.Fatalf("expected red prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestHealthLinesFlagProblems(t *testing.T) {
	health := queue.DatabaseHealth{
		DBPath:         "/tmp/queue.db",
		SchemaVersion:  1,
		TableExists:    true,
		MissingColumns: []string{"decided_by"},
		IntegrityCheck: false,
		FreeBytes:      10 << 20,
	}
	lines := strings.Join(healthLines(health, map[string]int{"pending": 2, "approved": 1}, false), "\n")
	for _, want := range []string{"[WARN] 1", "[ERROR] no", "[WARN] 10 MiB", "[ERROR] decided_by", "[INFO] 3"} {
		if !strings.Contains(lines, want) {
			t.Fatalf("expected %q in:\n%s", want, lines)
		}
	}
}

func TestTruncateAndSingleLine(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := singleLine("a\n  b\tc"); got != "a b c" {
		t.Fatalf("unexpected singleLine %q", got)
	}
}

func TestDeadlineLabel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	decided := now.Add(-2 * time.Hour)
	cases := []struct {
		name string
		item queue.Item
		want string
	}{
		{"pending", queue.Item{Status: queue.StatusPending, ExpiresAt: now.Add(3 * time.Hour)}, "expires 3 hours from now"},
		{"expired", queue.Item{Status: queue.StatusPending, ExpiresAt: now.Add(-time.Hour)}, "expired 1 hour ago"},
		{"decided", queue.Item{Status: queue.StatusApproved, ExpiresAt: now, DecidedAt: &decided}, "decided 2 hours ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deadlineLabel(&tc.item, now); got != tc.want {
				t.Fatalf("deadlineLabel = %q, want %q", got, tc.want)
			}
		})
	}
}
