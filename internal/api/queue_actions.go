package api

import (
	"context"
	"errors"
	"time"

	"postgate/internal/queue"
)

// DecisionOutcome explains what happened to one id in a batch decision.
type DecisionOutcome string

const (
	DecisionApplied         DecisionOutcome = "applied"
	DecisionNotFound        DecisionOutcome = "not_found"
	DecisionAlreadyDecided  DecisionOutcome = "already_decided"
	DecisionExpired         DecisionOutcome = "expired"
	DecisionNotFoundOrRaced DecisionOutcome = "not_found_or_expired"
)

// DecisionResult reports the outcome for a single id.
type DecisionResult struct {
	ID          string          `json:"id"`
	Outcome     DecisionOutcome `json:"outcome"`
	PriorStatus string          `json:"priorStatus,omitempty"`
}

// DecisionBatchResult summarizes a batch approve or reject.
type DecisionBatchResult struct {
	AppliedCount int              `json:"appliedCount"`
	Items        []DecisionResult `json:"items"`
}

// DecideItems applies the same decision to each id in order. Store failures
// abort the batch; an id that cannot be decided is explained by re-reading
// it, without affecting the others.
func DecideItems(ctx context.Context, service *QueueService, ids []string, to queue.Status, actor string) (DecisionBatchResult, error) {
	result := DecisionBatchResult{Items: make([]DecisionResult, 0, len(ids))}
	for _, id := range ids {
		err := service.decide(ctx, id, to, actor)
		if err == nil {
			result.AppliedCount++
			result.Items = append(result.Items, DecisionResult{ID: id, Outcome: DecisionApplied})
			continue
		}
		if !errors.Is(err, queue.ErrNotFoundOrExpired) {
			return DecisionBatchResult{}, err
		}
		result.Items = append(result.Items, explainMiss(ctx, service, id))
	}
	return result, nil
}

func explainMiss(ctx context.Context, service *QueueService, id string) DecisionResult {
	item, err := service.Get(ctx, id)
	if err != nil {
		return DecisionResult{ID: id, Outcome: DecisionNotFoundOrRaced}
	}
	return DecisionResult{ID: id, Outcome: ClassifyMiss(item, service.Now()), PriorStatus: statusOf(item)}
}

// ClassifyMiss explains why a decision on item found nothing to update.
func ClassifyMiss(item *queue.Item, now time.Time) DecisionOutcome {
	switch {
	case item == nil:
		return DecisionNotFound
	case item.IsTerminal():
		return DecisionAlreadyDecided
	case item.Expired(now):
		return DecisionExpired
	default:
		return DecisionNotFoundOrRaced
	}
}

func statusOf(item *queue.Item) string {
	if item == nil {
		return ""
	}
	return string(item.Status)
}
