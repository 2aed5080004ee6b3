// Package daemonctl starts, stops, and probes a background postgate daemon
// from the CLI using the daemon's lock and pid files.
package daemonctl
