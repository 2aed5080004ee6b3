// Package main hosts the postgate CLI entrypoint and command graph.
//
// The Cobra-based command tree opens the shared queue database directly: it
// submits content, lists and inspects items, records approve/reject decisions,
// runs the interactive terminal reviewer, and performs maintenance (sweeps,
// cleanup, health). `postgate daemon` runs the long-lived process that owns
// the sweeper and HTTP front end; start, stop, status, and logs manage it in
// the background. Because SQLite arbitrates every decision, the CLI works the
// same whether or not the daemon is running.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
