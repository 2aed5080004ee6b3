// Package reviewer implements the interactive terminal review loop behind
// `postgate review`.
//
// The loop lists pending items, presents them oldest first, and reads one
// answer per item: y/yes approves, n/no rejects, s skips for the rest of the
// session, q quits. Anything else re-prompts. Each item is re-read right
// before the prompt so a decision made elsewhere (the HTTP UI, another
// reviewer, the sweeper) is noticed and the item skipped. When nothing is
// pending the loop idles for the configured poll interval. It stops on
// context cancellation, on q, or at end of input.
package reviewer
