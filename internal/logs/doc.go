// Package logs reads daemon run logs for `postgate logs`.
//
// Tail streams a file with bounded memory, supports "last N lines" through a
// negative offset, and follows appended lines until the caller's context ends.
// Filter and Render understand the JSON lines written by the daemon run logger.
package logs
