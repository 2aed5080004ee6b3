// Package daemon coordinates the long-running postgate process.
//
// It wires configuration, the queue store, the expiry sweeper, and the HTTP
// front end into a single lifecycle with flock-based locking so only one
// daemon serves a data directory. The sweeper starts after the store is open
// and stops before it closes; the HTTP server is optional and disabled by an
// empty api_bind.
//
// Keep orchestration logic here: queue semantics live in internal/queue and
// internal/api while the daemon focuses on startup, shutdown, and status.
package daemon
