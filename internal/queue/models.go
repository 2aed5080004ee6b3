package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Actor labels recorded in decided_by by built-in front ends.
const (
	ActorSweeper = "sweeper"
	ActorCLI     = "cli"
	ActorHTTP    = "http"
)

var allStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Item represents a review item persisted in SQLite.
type Item struct {
	ID        string
	Content   string
	Metadata  json.RawMessage
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
	DecidedAt *time.Time
	DecidedBy string
}

// NewItem describes a submission before it is persisted.
type NewItem struct {
	Content  string
	Metadata json.RawMessage
	Timeout  time.Duration
}

// IsTerminal reports whether the item has been approved or rejected.
func (i *Item) IsTerminal() bool {
	return i != nil && i.Status.IsTerminal()
}

// Expired reports whether a pending item is past its deadline at now.
func (i *Item) Expired(now time.Time) bool {
	return i != nil && !now.Before(i.ExpiresAt)
}

// Decidable reports whether a manual approve/reject would currently succeed.
func (i *Item) Decidable(now time.Time) bool {
	return i != nil && i.Status == StatusPending && now.Before(i.ExpiresAt)
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	FreeBytes        uint64
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a known queue status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// IsTerminal reports whether status is approved or rejected.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}
