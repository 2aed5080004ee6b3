package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"createdAt"`
	ExpiresAt string          `json:"expiresAt"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	DecidedAt string          `json:"decidedAt,omitempty"`
	DecidedBy string          `json:"decidedBy,omitempty"`
}

// SubmitRequest is the JSON body accepted by the submit endpoint.
type SubmitRequest struct {
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	TimeoutSeconds int             `json:"timeoutSeconds,omitempty"`
}

// DecisionResponse acknowledges an approve or reject call.
type DecisionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse is returned for failed requests that are not decisions.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// QueueListResponse wraps a collection of queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueStatus summarizes the queue for the status endpoint and CLI health
// output.
type QueueStatus struct {
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
	DatabasePath  string         `json:"databasePath,omitempty"`
	SchemaVersion int            `json:"schemaVersion,omitempty"`
	FreeBytes     uint64         `json:"freeBytes,omitempty"`
}
