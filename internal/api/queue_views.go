package api

import (
	"slices"
	"time"

	"postgate/internal/queue"
)

// OldestFirst returns items in presentation order for reviewers: the reverse
// of the store's newest-first listing. The input slice is not modified.
func OldestFirst(items []*queue.Item) []*queue.Item {
	if len(items) == 0 {
		return nil
	}
	out := slices.Clone(items)
	slices.Reverse(out)
	return out
}

// FilterDecidable keeps items that a manual decision could still act on at
// now: pending and before their deadline.
func FilterDecidable(items []*queue.Item, now time.Time) []*queue.Item {
	out := make([]*queue.Item, 0, len(items))
	for _, item := range items {
		if item.Decidable(now) {
			out = append(out, item)
		}
	}
	return out
}
