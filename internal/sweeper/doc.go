// Package sweeper runs the periodic expiry pass that rejects pending items
// whose review deadline has passed.
//
// The daemon starts a Sweeper after the queue store opens and stops it before
// the store closes. Each pass runs once at start and then on every tick; a
// tick that arrives while a pass is still running is skipped. When retention
// windows are configured, the same pass also deletes stale pending items and
// purges old decided items.
package sweeper
