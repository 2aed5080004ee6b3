package queue

import (
	"database/sql"
	"encoding/json"
	"time"
)

const itemColumns = "id, content, metadata_json, status, created_at, expires_at, updated_at, decided_at, decided_by"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id        string
		content   string
		metadata  sql.NullString
		statusStr string
		created   int64
		expires   int64
		updated   int64
		decidedAt sql.NullInt64
		decidedBy sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&content,
		&metadata,
		&statusStr,
		&created,
		&expires,
		&updated,
		&decidedAt,
		&decidedBy,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:        id,
		Content:   content,
		Metadata:  json.RawMessage(metadata.String),
		Status:    Status(statusStr),
		CreatedAt: fromUnixNanos(created),
		ExpiresAt: fromUnixNanos(expires),
		UpdatedAt: fromUnixNanos(updated),
		DecidedBy: decidedBy.String,
	}
	if len(item.Metadata) == 0 {
		item.Metadata = json.RawMessage(emptyMetadata)
	}
	if decidedAt.Valid {
		decided := fromUnixNanos(decidedAt.Int64)
		item.DecidedAt = &decided
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const emptyMetadata = "{}"

func unixNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNanos(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(0, value).UTC()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
