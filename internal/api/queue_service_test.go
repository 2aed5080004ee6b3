package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"postgate/internal/notifications"
	"postgate/internal/queue"
	"postgate/internal/testsupport"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type serviceFixture struct {
	svc     *QueueService
	store   *queue.Store
	clock   *testsupport.Clock
	metrics *Metrics
}

func newServiceFixture(t *testing.T, opts ...ServiceOption) serviceFixture {
	t.Helper()
	clock := testsupport.NewClock(epoch)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), queue.WithClock(clock.Now))
	metrics := NewMetrics(prometheus.NewRegistry())
	opts = append([]ServiceOption{WithMetrics(metrics)}, opts...)
	return serviceFixture{
		svc:     NewQueueService(store, opts...),
		store:   store,
		clock:   clock,
		metrics: metrics,
	}
}

func TestQueueServiceSubmitAppliesDefaultTimeout(t *testing.T) {
	f := newServiceFixture(t, WithDefaultTimeout(2*time.Hour))

	item, err := f.svc.Submit(context.Background(), "ship it", map[string]any{"source": "agent", "priority": 2})
	require.NoError(t, err)
	require.Equal(t, queue.StatusPending, item.Status)
	require.Equal(t, epoch.Add(2*time.Hour), item.ExpiresAt)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(item.Metadata, &meta))
	require.Equal(t, "agent", meta["source"])
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("accepted")), 0.0001)
}

func TestQueueServiceSubmitTimeoutOverride(t *testing.T) {
	f := newServiceFixture(t)

	item, err := f.svc.Submit(context.Background(), "quick", nil, WithTimeout(90*time.Second))
	require.NoError(t, err)
	require.Equal(t, epoch.Add(90*time.Second), item.ExpiresAt)

	_, err = f.svc.Submit(context.Background(), "bad", nil, WithTimeout(0))
	require.True(t, queue.IsValidation(err), "expected validation error, got %v", err)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("invalid")), 0.0001)
}

func TestQueueServiceSubmitRejectsEmptyContent(t *testing.T) {
	f := newServiceFixture(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Submit(context.Background(), content, nil)
		var vErr *queue.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Equal(t, "content", vErr.Field)
	}
	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestQueueServiceSubmitRawPreservesBytes(t *testing.T) {
	f := newServiceFixture(t)
	raw := json.RawMessage(`{"z":1,  "a":{"nested":[true,null]}}`)

	item, err := f.svc.SubmitRaw(context.Background(), "raw", raw)
	require.NoError(t, err)

	fetched, err := f.svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, string(raw), string(fetched.Metadata))

	_, err = f.svc.SubmitRaw(context.Background(), "raw", json.RawMessage(`"just a string"`))
	require.True(t, queue.IsValidation(err))
}

// Submit with a short timeout, let it lapse, and confirm only the sweeper can
// move it.
func TestScenarioExpiredItemIsRejectedBySweep(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	item, err := f.svc.Submit(ctx, "hello", nil, WithTimeout(time.Second))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)
	swept, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	fetched, err := f.svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, queue.StatusRejected, fetched.Status)
	require.Equal(t, queue.ActorSweeper, fetched.DecidedBy)

	require.ErrorIs(t, f.svc.Approve(ctx, item.ID), queue.ErrNotFoundOrExpired)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Expired), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Sweeps.WithLabelValues("ok")), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Decisions.WithLabelValues("not_found_or_expired")), 0.0001)
}

func TestScenarioApprovedItemCannotBeRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	item, err := f.svc.Submit(ctx, "B", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveAs(ctx, item.ID, "alice"))
	require.ErrorIs(t, f.svc.RejectAs(ctx, item.ID, "bob"), queue.ErrNotFoundOrExpired)

	fetched, err := f.svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, queue.StatusApproved, fetched.Status)
	require.Equal(t, "alice", fetched.DecidedBy)

	approved, err := f.svc.List(ctx, queue.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Decisions.WithLabelValues("approved")), 0.0001)
}

func TestScenarioPendingListedNewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"C", "D", "E"} {
		item, err := f.svc.Submit(ctx, content, nil)
		require.NoError(t, err)
		ids = append(ids, item.ID)
		f.clock.Advance(time.Millisecond)
	}

	pending, err := f.svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, []string{"E", "D", "C"}, []string{pending[0].Content, pending[1].Content, pending[2].Content})

	oldest := OldestFirst(pending)
	require.Equal(t, ids, []string{oldest[0].ID, oldest[1].ID, oldest[2].ID})
	require.Equal(t, "E", pending[0].Content, "OldestFirst must not reorder its input")
}

func TestQueueServiceStatsAndHealth(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	a, err := f.svc.Submit(ctx, "a", nil)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "b", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reject(ctx, a.ID))

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"pending": 1, "approved": 0, "rejected": 1}, stats)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Pending), 0.0001)

	health, err := f.svc.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, queue.HealthSummary{Total: 2, Pending: 1, Rejected: 1}, health)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, status.Total)
	require.Equal(t, f.store.Path(), status.DatabasePath)
	require.Equal(t, queue.SchemaVersion(), status.SchemaVersion)
}

func TestQueueServiceRetention(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stale, err := f.svc.Submit(ctx, "stale", nil, WithTimeout(72*time.Hour))
	require.NoError(t, err)
	decided, err := f.svc.Submit(ctx, "decided", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, decided.ID))

	f.clock.Advance(48 * time.Hour)
	removed, err := f.svc.CleanupOld(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	gone, err := f.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	purged, err := f.svc.PurgeDecided(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Removed.WithLabelValues("cleanup_pending")), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.Removed.WithLabelValues("purge_decided")), 0.0001)
}

type failingStore struct {
	QueueStore
	err error
}

func (f failingStore) Decide(context.Context, string, queue.Status, string) error { return f.err }

func (f failingStore) ExpirePending(context.Context) (int64, error) { return 0, f.err }

func TestQueueServicePropagatesStoreFailures(t *testing.T) {
	storeErr := &queue.StoreError{Op: "decide item", Err: errors.New("disk I/O error")}
	metrics := NewMetrics(nil)
	svc := NewQueueService(failingStore{err: storeErr}, WithMetrics(metrics))

	err := svc.Approve(context.Background(), "x")
	require.ErrorIs(t, err, queue.ErrStoreFailure)
	require.Equal(t, "store", queue.Kind(err))
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Decisions.WithLabelValues("error")), 0.0001)

	_, err = svc.Sweep(context.Background())
	require.ErrorIs(t, err, queue.ErrStoreFailure)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Sweeps.WithLabelValues("error")), 0.0001)
}

func TestNewQueueServiceNilStore(t *testing.T) {
	require.Nil(t, NewQueueService(nil))
}

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	events []recordedEvent
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, recordedEvent{event: event, payload: payload})
	return r.err
}

func (r *recordingNotifier) Enabled() bool { return true }

func TestQueueServiceNotifiesSubmissionsAndExpiry(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newServiceFixture(t, WithNotifier(notifier))
	ctx := context.Background()

	item, err := f.svc.Submit(ctx, "needs eyes", nil, WithTimeout(time.Minute))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "  ", nil)
	require.Error(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	_, err = f.svc.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, notifier.events, 2)
	require.Equal(t, notifications.EventItemSubmitted, notifier.events[0].event)
	require.Equal(t, item.ID, notifier.events[0].payload["id"])
	require.Equal(t, "needs eyes", notifier.events[0].payload["content"])
	require.Equal(t, notifications.EventItemsExpired, notifier.events[1].event)
	require.EqualValues(t, 1, notifier.events[1].payload["count"])
}

func TestQueueServiceIgnoresNotificationFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("ntfy unreachable")}
	f := newServiceFixture(t, WithNotifier(notifier))

	item, err := f.svc.Submit(context.Background(), "still queued", nil)
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Len(t, notifier.events, 1)
}

func TestQueueServiceNotifiesSweepFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	storeErr := &queue.StoreError{Op: "expire pending", Err: errors.New("disk I/O error")}
	svc := NewQueueService(failingStore{err: storeErr}, WithNotifier(notifier))

	_, err := svc.Sweep(context.Background())
	require.ErrorIs(t, err, queue.ErrStoreFailure)
	require.Len(t, notifier.events, 1)
	require.Equal(t, notifications.EventError, notifier.events[0].event)
	require.Equal(t, "sweep", notifier.events[0].payload["context"])
}
