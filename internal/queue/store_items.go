package queue

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Submit validates and inserts a new pending item. The id is a UUIDv7 so ids
// sort by creation time.
func (s *Store) Submit(ctx context.Context, submission NewItem) (*Item, error) {
	now := s.Now()
	metadata, err := validateSubmission(submission, now)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, storeFailure("generate item id", err)
	}

	item := &Item{
		ID:        id.String(),
		Content:   submission.Content,
		Metadata:  metadata,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(submission.Timeout),
		UpdatedAt: now,
	}

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            id, content, metadata_json, status, created_at, expires_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Content,
		string(item.Metadata),
		item.Status,
		unixNanos(item.CreatedAt),
		unixNanos(item.ExpiresAt),
		unixNanos(item.UpdatedAt),
	); err != nil {
		return nil, storeFailure("insert item", err)
	}
	return item, nil
}

// latestExpiry is the last instant a unix-nanosecond column can hold.
var latestExpiry = time.Unix(0, math.MaxInt64)

func validateSubmission(submission NewItem, now time.Time) (json.RawMessage, error) {
	if strings.TrimSpace(submission.Content) == "" {
		return nil, &ValidationError{Field: "content", Message: "must not be empty"}
	}
	if submission.Timeout <= 0 {
		return nil, &ValidationError{Field: "timeout", Message: "must be a positive duration"}
	}
	if submission.Timeout > latestExpiry.Sub(now) {
		return nil, &ValidationError{Field: "timeout", Message: "expires too far in the future"}
	}
	trimmed := bytes.TrimSpace(submission.Metadata)
	if len(trimmed) == 0 {
		return json.RawMessage(emptyMetadata), nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, &ValidationError{Field: "metadata", Message: "must be a JSON object"}
	}
	out := make(json.RawMessage, len(submission.Metadata))
	copy(out, submission.Metadata)
	return out, nil
}

// GetByID fetches an item in any status. It returns nil without error when
// no item matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeFailure("get item", err)
	}
	return item, nil
}

// List returns items filtered by status set (or all items when no status is
// provided), most recently created first. Items created at the same instant
// are ordered by insertion, newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at DESC, rowid DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, storeFailure("list queue items", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, storeFailure("scan queue items", err)
	}
	return items, nil
}
