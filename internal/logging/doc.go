// Package logging assembles the structured slog loggers shared by the postgate
// daemon, CLI, and reviewer.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with queue item IDs and request
// correlation IDs. Daemon runs tee console output to stdout and JSON lines to a
// per-run file under the configured log directory; CleanupOldLogs prunes those
// files once they age past the retention window.
//
// A no-op logger is available for tests and for wiring code that cannot fail.
package logging
