package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"postgate/internal/logging"
	"postgate/internal/notifications"
	"postgate/internal/queue"
)

// QueueStore abstracts the queue persistence operations QueueService needs.
type QueueStore interface {
	Submit(ctx context.Context, submission queue.NewItem) (*queue.Item, error)
	GetByID(ctx context.Context, id string) (*queue.Item, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Decide(ctx context.Context, id string, to queue.Status, actor string) error
	ExpirePending(ctx context.Context) (int64, error)
	CleanupOld(ctx context.Context, maxAge time.Duration) (int64, error)
	PurgeDecided(ctx context.Context, maxAge time.Duration) (int64, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
	Now() time.Time
}

// QueueService exposes queue operations with defaults, logging, and metrics.
type QueueService struct {
	store          QueueStore
	defaultTimeout time.Duration
	logger         *slog.Logger
	metrics        *Metrics
	notifier       notifications.Service
}

// ServiceOption customizes a QueueService.
type ServiceOption func(*QueueService)

// WithDefaultTimeout sets the review window applied when a submission does
// not specify one.
func WithDefaultTimeout(d time.Duration) ServiceOption {
	return func(s *QueueService) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// WithLogger attaches a logger; decisions and sweeps are logged through it.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *QueueService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *QueueService) {
		s.metrics = m
	}
}

// WithNotifier pushes submissions, expiries, and sweep failures to notifier.
func WithNotifier(notifier notifications.Service) ServiceOption {
	return func(s *QueueService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// DefaultTimeout is the review window used when a submission omits one.
const DefaultTimeout = 24 * time.Hour

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore, opts ...ServiceOption) *QueueService {
	if store == nil {
		return nil
	}
	svc := &QueueService{
		store:          store,
		defaultTimeout: DefaultTimeout,
		logger:         logging.NewNop(),
		notifier:       notifications.NewService(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.logger = logging.NewComponentLogger(svc.logger, "queue")
	return svc
}

type submitOptions struct {
	timeout    time.Duration
	hasTimeout bool
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*submitOptions)

// WithTimeout overrides the default review window for one submission. A
// non-positive duration is rejected with a ValidationError.
func WithTimeout(d time.Duration) SubmitOption {
	return func(o *submitOptions) {
		o.timeout = d
		o.hasTimeout = true
	}
}

// Submit enqueues content for review with optional structured metadata.
func (s *QueueService) Submit(ctx context.Context, content string, metadata map[string]any, opts ...SubmitOption) (*queue.Item, error) {
	var raw json.RawMessage
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			s.metrics.submission("invalid")
			return nil, &queue.ValidationError{Field: "metadata", Message: fmt.Sprintf("cannot be encoded as JSON: %v", err)}
		}
		raw = encoded
	}
	return s.SubmitRaw(ctx, content, raw, opts...)
}

// SubmitRaw enqueues content with producer-serialized metadata, which must be
// a JSON object. The metadata bytes are stored unchanged.
func (s *QueueService) SubmitRaw(ctx context.Context, content string, metadata json.RawMessage, opts ...SubmitOption) (*queue.Item, error) {
	options := submitOptions{timeout: s.defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	item, err := s.store.Submit(ctx, queue.NewItem{
		Content:  content,
		Metadata: metadata,
		Timeout:  options.timeout,
	})
	if err != nil {
		if queue.IsValidation(err) {
			s.metrics.submission("invalid")
			logging.WithContext(ctx, s.logger).Debug("submission rejected", logging.Error(err))
		} else {
			s.metrics.submission("error")
			logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "submission failed", "submit_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database permissions and free space"),
			)
		}
		return nil, err
	}
	s.metrics.submission("accepted")
	s.logger.Info("item submitted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldEventType, "item_submitted"),
		logging.Time("expires_at", item.ExpiresAt),
		logging.Bool("custom_timeout", options.hasTimeout),
	)
	s.notify(ctx, notifications.EventItemSubmitted, notifications.Payload{
		"id":        item.ID,
		"content":   item.Content,
		"expiresAt": item.ExpiresAt,
	})
	return item, nil
}

// Approve approves a pending, unexpired item without recording an actor.
func (s *QueueService) Approve(ctx context.Context, id string) error {
	return s.ApproveAs(ctx, id, "")
}

// Reject rejects a pending, unexpired item without recording an actor.
func (s *QueueService) Reject(ctx context.Context, id string) error {
	return s.RejectAs(ctx, id, "")
}

// ApproveAs approves a pending, unexpired item on behalf of actor.
func (s *QueueService) ApproveAs(ctx context.Context, id, actor string) error {
	return s.decide(ctx, id, queue.StatusApproved, actor)
}

// RejectAs rejects a pending, unexpired item on behalf of actor.
func (s *QueueService) RejectAs(ctx context.Context, id, actor string) error {
	return s.decide(ctx, id, queue.StatusRejected, actor)
}

func (s *QueueService) decide(ctx context.Context, id string, to queue.Status, actor string) error {
	logger := logging.WithContext(logging.WithItemID(ctx, id), s.logger)
	err := s.store.Decide(ctx, id, to, actor)
	switch {
	case err == nil:
		s.metrics.decision(string(to))
		logger.Info("review decision applied",
			logging.Args(append(logging.DecisionAttrs("review", string(to), actor),
				logging.String(logging.FieldEventType, "item_decided"))...)...,
		)
		return nil
	case errors.Is(err, queue.ErrNotFoundOrExpired):
		s.metrics.decision("not_found_or_expired")
		logger.Info("review decision had no effect",
			logging.Args(append(logging.DecisionAttrs("review", "not_found_or_expired", actor),
				logging.String("requested", string(to)))...)...,
		)
		return err
	default:
		s.metrics.decision("error")
		logging.ErrorWithContext(logger, "review decision failed", "decision_failed",
			logging.String("requested", string(to)),
			logging.Error(err),
		)
		return err
	}
}

// notify publishes best-effort; delivery failures never fail the queue
// operation that triggered them.
func (s *QueueService) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
		)
	}
}

// Get returns the item with id in any status, or nil when absent.
func (s *QueueService) Get(ctx context.Context, id string) (*queue.Item, error) {
	return s.store.GetByID(ctx, id)
}

// List returns items with the given statuses (all when none), newest first.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	return s.store.List(ctx, statuses...)
}

// Now returns the queue clock, which decides expiry.
func (s *QueueService) Now() time.Time {
	return s.store.Now()
}

// Pending is List(pending).
func (s *QueueService) Pending(ctx context.Context) ([]*queue.Item, error) {
	return s.store.List(ctx, queue.StatusPending)
}

// Sweep rejects every pending item whose deadline has passed and returns how
// many were transitioned.
func (s *QueueService) Sweep(ctx context.Context) (int64, error) {
	count, err := s.store.ExpirePending(ctx)
	s.metrics.sweep(count, err)
	if err != nil {
		s.notify(ctx, notifications.EventError, notifications.Payload{"context": "sweep", "error": err})
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired items rejected",
			logging.Int64("count", count),
			logging.String(logging.FieldEventType, "items_expired"),
			logging.String(logging.FieldDecidedBy, queue.ActorSweeper),
		)
		s.notify(ctx, notifications.EventItemsExpired, notifications.Payload{"count": count})
	}
	return count, nil
}

// CleanupOld deletes pending items created more than maxAge ago.
func (s *QueueService) CleanupOld(ctx context.Context, maxAge time.Duration) (int64, error) {
	count, err := s.store.CleanupOld(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	s.metrics.removed("cleanup_pending", count)
	if count > 0 {
		s.logger.Info("stale pending items removed",
			logging.Int64("count", count),
			logging.Duration("max_age", maxAge),
			logging.String(logging.FieldEventType, "items_cleaned"),
		)
	}
	return count, nil
}

// PurgeDecided deletes approved and rejected items decided more than maxAge
// ago.
func (s *QueueService) PurgeDecided(ctx context.Context, maxAge time.Duration) (int64, error) {
	count, err := s.store.PurgeDecided(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	s.metrics.removed("purge_decided", count)
	if count > 0 {
		s.logger.Info("decided items purged",
			logging.Int64("count", count),
			logging.Duration("max_age", maxAge),
			logging.String(logging.FieldEventType, "items_purged"),
		)
	}
	return count, nil
}

// Stats returns counts for every status and refreshes the pending gauge.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.pending(stats[queue.StatusPending])
	return MergeQueueStats(stats), nil
}

// Health returns aggregated counts per lifecycle state.
func (s *QueueService) Health(ctx context.Context) (queue.HealthSummary, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return queue.HealthSummary{}, err
	}
	s.metrics.pending(stats[queue.StatusPending])
	return queue.HealthSummary{
		Total:    stats[queue.StatusPending] + stats[queue.StatusApproved] + stats[queue.StatusRejected],
		Pending:  stats[queue.StatusPending],
		Approved: stats[queue.StatusApproved],
		Rejected: stats[queue.StatusRejected],
	}, nil
}

// Status combines per-status counts with database diagnostics.
func (s *QueueService) Status(ctx context.Context) (QueueStatus, error) {
	counts, err := s.Stats(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	status := QueueStatus{Counts: counts}
	for _, count := range counts {
		status.Total += count
	}
	if health, err := s.store.CheckHealth(ctx); err == nil {
		status.DatabasePath = health.DBPath
		status.SchemaVersion = health.SchemaVersion
		status.FreeBytes = health.FreeBytes
	}
	return status, nil
}

// CheckHealth returns database diagnostics.
func (s *QueueService) CheckHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return s.store.CheckHealth(ctx)
}
