package api

import (
	"encoding/json"
	"time"

	"postgate/internal/queue"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:        item.ID,
		Content:   item.Content,
		Metadata:  item.Metadata,
		Status:    string(item.Status),
		CreatedAt: formatTime(item.CreatedAt),
		ExpiresAt: formatTime(item.ExpiresAt),
		UpdatedAt: formatTime(item.UpdatedAt),
		DecidedBy: item.DecidedBy,
	}
	if len(dto.Metadata) == 0 {
		dto.Metadata = json.RawMessage("{}")
	}
	if item.DecidedAt != nil {
		dto.DecidedAt = formatTime(*item.DecidedAt)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs. The result
// is never nil so it encodes as a JSON array.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// MergeQueueStats returns counts for every known status, filling absent
// statuses with zero.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
