package testsupport

import (
	"context"
	"testing"
	"time"

	"postgate/internal/config"
	"postgate/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Submit inserts a pending item with the given content and timeout.
func Submit(t testing.TB, store *queue.Store, content string, timeout time.Duration) *queue.Item {
	t.Helper()

	item, err := store.Submit(context.Background(), queue.NewItem{Content: content, Timeout: timeout})
	if err != nil {
		t.Fatalf("store.Submit: %v", err)
	}
	return item
}
