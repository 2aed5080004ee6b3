// Package notifications pushes queue events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Events that the configuration suppresses
// are dropped before any HTTP traffic.
package notifications
