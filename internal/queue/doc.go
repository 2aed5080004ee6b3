// Package queue persists review items in SQLite and exposes the atomic
// transitions that drive their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, expiry sweeps, and retention cleanup. Items move from pending to
// exactly one terminal status (approved or rejected). Every transition is a
// single conditional UPDATE so concurrent reviewers, HTTP handlers, and the
// sweeper can share one database without a process-level lock: whichever
// writer commits first wins and every other writer observes
// ErrNotFoundOrExpired.
//
// Metadata supplied by producers is stored as an opaque JSON document and
// returned byte-for-byte; this package never interprets it.
//
// Schema changes bump the version in schema.go; operators clear the database
// to adopt the new schema.
package queue
