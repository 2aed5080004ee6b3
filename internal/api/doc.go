// Package api is the in-process queue API. QueueService layers defaults,
// decision logging, Prometheus metrics, and notifications over queue.Store,
// and the package defines the transport DTOs shared by the HTTP server and the
// CLI.
//
// # Key Types
//
// QueueService: submit, approve/reject (with actor attribution), get, list,
// sweep, cleanup, purge, and health operations.
//
// QueueItem: camelCase transport representation of a queue entry. Metadata is
// passed through as json.RawMessage so producer JSON is returned byte for byte.
//
// Metrics: counters for submissions, decisions, and sweeps plus a pending
// gauge, registered on a caller-supplied registry.
//
// # Design Notes
//
// Errors from the store are returned unchanged so callers can classify them
// with queue.Kind. Timestamps use RFC3339 with milliseconds in UTC.
package api
