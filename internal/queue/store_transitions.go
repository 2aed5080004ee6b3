package queue

import (
	"context"
	"fmt"
	"strings"
)

// Approve moves a pending, unexpired item to approved.
func (s *Store) Approve(ctx context.Context, id, actor string) error {
	return s.Decide(ctx, id, StatusApproved, actor)
}

// Reject moves a pending, unexpired item to rejected.
func (s *Store) Reject(ctx context.Context, id, actor string) error {
	return s.Decide(ctx, id, StatusRejected, actor)
}

// Decide applies a manual decision as one conditional UPDATE. Exactly one of
// several concurrent decisions on the same id can match the pending guard;
// the rest get ErrNotFoundOrExpired.
func (s *Store) Decide(ctx context.Context, id string, to Status, actor string) error {
	if !to.IsTerminal() {
		return fmt.Errorf("decide: %q is not a terminal status", to)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFoundOrExpired
	}
	now := unixNanos(s.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, decided_at = ?, decided_by = ?, updated_at = ?
         WHERE id = ? AND status = ? AND expires_at > ?`,
		to,
		now,
		nullableString(strings.TrimSpace(actor)),
		now,
		id,
		StatusPending,
		now,
	)
	if err != nil {
		return storeFailure("decide item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeFailure("rows affected", err)
	}
	if affected == 0 {
		return ErrNotFoundOrExpired
	}
	return nil
}

// ExpirePending rejects every pending item whose deadline is at or before
// now. Running it again without new expirations is a no-op.
func (s *Store) ExpirePending(ctx context.Context) (int64, error) {
	now := unixNanos(s.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, decided_at = ?, decided_by = ?, updated_at = ?
         WHERE status = ? AND expires_at <= ?`,
		StatusRejected,
		now,
		ActorSweeper,
		now,
		StatusPending,
		now,
	)
	if err != nil {
		return 0, storeFailure("expire pending items", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeFailure("rows affected", err)
	}
	return affected, nil
}
