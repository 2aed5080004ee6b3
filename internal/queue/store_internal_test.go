package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return newStore(db, "/tmp/queue.db", WithClock(func() time.Time { return fixed })), mock
}

func TestSubmitWrapsDriverFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO queue_items").WillReturnError(errors.New("disk I/O error"))

	_, err := store.Submit(context.Background(), NewItem{Content: "hello", Timeout: time.Minute})
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
	if Kind(err) != "store" {
		t.Fatalf("expected store kind, got %q", Kind(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDecideRetriesWhileLocked(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE queue_items").WillReturnError(errors.New("database is locked"))
	mock.ExpectExec("UPDATE queue_items").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Approve(context.Background(), "abc", ActorCLI); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDecideZeroRowsIsNotFoundOrExpired(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE queue_items").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Reject(context.Background(), "abc", ActorHTTP)
	if !errors.Is(err, ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired, got %v", err)
	}
	if errors.Is(err, ErrStoreFailure) {
		t.Fatal("not-found must not be classified as a store failure")
	}
	if Kind(err) != "not_found_or_expired" {
		t.Fatalf("unexpected kind %q", Kind(err))
	}
}

func TestDecideDoesNotRetryOtherErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE queue_items").WillReturnError(errors.New("constraint failed"))

	err := store.Approve(context.Background(), "abc", "")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Op != "decide item" {
		t.Fatalf("unexpected op %q", storeErr.Op)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDWrapsQueryFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM queue_items WHERE id").WillReturnError(errors.New("boom"))

	item, err := store.GetByID(context.Background(), "abc")
	if item != nil || !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected store failure, got item=%v err=%v", item, err)
	}
}

func TestListScansRows(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decided := created.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"id", "content", "metadata_json", "status", "created_at", "expires_at", "updated_at", "decided_at", "decided_by"}).
		AddRow("b", "second", `{"k":1}`, "approved", created.UnixNano(), created.Add(time.Hour).UnixNano(), decided.UnixNano(), decided.UnixNano(), "cli").
		AddRow("a", "first", nil, "pending", created.UnixNano(), created.Add(time.Hour).UnixNano(), created.UnixNano(), nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM queue_items WHERE status IN").WithArgs(StatusPending, StatusApproved).WillReturnRows(rows)

	items, err := store.List(context.Background(), StatusPending, StatusApproved)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].DecidedAt == nil || !items[0].DecidedAt.Equal(decided) || items[0].DecidedBy != "cli" {
		t.Fatalf("unexpected decision fields: %+v", items[0])
	}
	if string(items[1].Metadata) != "{}" || items[1].DecidedAt != nil {
		t.Fatalf("unexpected pending item: %+v", items[1])
	}
}

func TestMakePlaceholders(t *testing.T) {
	cases := map[int]string{0: "", 1: "?", 3: "?,?,?"}
	for count, want := range cases {
		if got := makePlaceholders(count); got != want {
			t.Fatalf("makePlaceholders(%d) = %q, want %q", count, got, want)
		}
	}
}
