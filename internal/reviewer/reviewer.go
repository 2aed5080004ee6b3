package reviewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"postgate/internal/api"
	"postgate/internal/logging"
	"postgate/internal/queue"
)

// Service is the subset of the queue API the reviewer uses.
type Service interface {
	Pending(ctx context.Context) ([]*queue.Item, error)
	Get(ctx context.Context, id string) (*queue.Item, error)
	ApproveAs(ctx context.Context, id, actor string) error
	RejectAs(ctx context.Context, id, actor string) error
	Now() time.Time
}

// Options configures a Reviewer.
type Options struct {
	In           io.Reader
	Out          io.Writer
	PollInterval time.Duration
	// Actor is recorded as decided_by on every decision.
	Actor  string
	Logger *slog.Logger
	// Color forces colour on or off; nil detects a terminal on Out.
	Color *bool
	// Once stops the loop after the first pass that finds nothing left to
	// review instead of idling.
	Once bool
}

// Summary counts what happened during a session.
type Summary struct {
	Approved int
	Rejected int
	Skipped  int
	Missed   int
}

// Reviewer drives the interactive approval loop.
type Reviewer struct {
	svc      Service
	out      io.Writer
	input    *lineReader
	poll     time.Duration
	actor    string
	logger   *slog.Logger
	colorize bool
	once     bool
	// skipped holds ids passed over this session: skipped by the reviewer or
	// found undecidable (expired but not yet swept).
	skipped map[string]struct{}
}

// DefaultPollInterval is used when Options.PollInterval is not positive.
const DefaultPollInterval = 5 * time.Second

// New constructs a Reviewer reading answers from opts.In.
func New(svc Service, opts Options) *Reviewer {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	actor := opts.Actor
	if actor == "" {
		actor = queue.ActorCLI
	}
	colorize := shouldColorize(out)
	if opts.Color != nil {
		colorize = *opts.Color
	}
	return &Reviewer{
		svc:      svc,
		out:      out,
		input:    newLineReader(in),
		poll:     poll,
		actor:    actor,
		logger:   logging.NewComponentLogger(opts.Logger, "reviewer"),
		colorize: colorize,
		once:     opts.Once,
		skipped:  make(map[string]struct{}),
	}
}

// Run executes the review loop until ctx is cancelled, the reviewer quits,
// or input ends. None of those are errors. The input is released when Run
// returns, so a Reviewer runs once.
func (r *Reviewer) Run(ctx context.Context) (Summary, error) {
	defer r.input.stop()
	var summary Summary
	idleNoticeShown := false
	for {
		if ctx.Err() != nil {
			return summary, nil
		}

		items, err := r.svc.Pending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return summary, nil
			}
			logging.WarnWithContext(r.logger, "listing pending items failed; retrying", "review_list_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "review paused until the queue is readable"),
			)
			r.printf("Could not read the queue: %v\n", err)
			if !r.idle(ctx) {
				return summary, nil
			}
			continue
		}

		batch := r.unskipped(api.OldestFirst(items))
		if len(batch) == 0 {
			if r.once {
				r.printf("Nothing left to review.\n")
				return summary, nil
			}
			if !idleNoticeShown {
				r.printf("No pending items. Waiting for new submissions (Ctrl+C to stop)...\n")
				idleNoticeShown = true
			}
			if !r.idle(ctx) {
				return summary, nil
			}
			continue
		}
		idleNoticeShown = false

		for i, item := range batch {
			stop, err := r.review(ctx, item, i+1, len(batch), &summary)
			if err != nil {
				return summary, err
			}
			if stop {
				return summary, nil
			}
		}
	}
}

// review presents one item and applies the answer. It reports stop=true
// when the session should end.
func (r *Reviewer) review(ctx context.Context, listed *queue.Item, position, total int, summary *Summary) (bool, error) {
	current, err := r.svc.Get(ctx, listed.ID)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		logging.WarnWithContext(r.logger, "re-reading item failed; skipping", "review_get_failed",
			logging.String(logging.FieldItemID, listed.ID),
			logging.Error(err),
		)
		return false, nil
	}
	now := r.svc.Now()
	if current == nil || !current.Decidable(now) {
		r.skipped[listed.ID] = struct{}{}
		summary.Missed++
		r.printf("Item %s is no longer pending; skipping.\n", shortID(listed.ID))
		return false, nil
	}

	r.printf("\n%s\n", renderCard(current, now, position, total, r.colorize))
	act, err := r.ask(ctx)
	if err != nil {
		if errors.Is(err, errInputClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.printf("\n")
			return true, nil
		}
		return true, fmt.Errorf("read answer: %w", err)
	}

	switch act {
	case actionQuit:
		return true, nil
	case actionSkip:
		r.skipped[current.ID] = struct{}{}
		summary.Skipped++
		r.printf("Skipped %s.\n", shortID(current.ID))
		return false, nil
	case actionApprove:
		err = r.svc.ApproveAs(ctx, current.ID, r.actor)
	case actionReject:
		err = r.svc.RejectAs(ctx, current.ID, r.actor)
	}

	switch {
	case err == nil && act == actionApprove:
		summary.Approved++
		r.printf("%s %s\n", colorizeText("Approved", r.colorize, text.FgGreen), shortID(current.ID))
	case err == nil:
		summary.Rejected++
		r.printf("%s %s\n", colorizeText("Rejected", r.colorize, text.FgRed), shortID(current.ID))
	case errors.Is(err, queue.ErrNotFoundOrExpired):
		summary.Missed++
		r.printf("%s %s was decided elsewhere or expired; skipped.\n", colorizeText("Missed", r.colorize, text.FgYellow), shortID(current.ID))
	default:
		if ctx.Err() != nil {
			return true, nil
		}
		r.printf("Decision on %s failed: %v\n", shortID(current.ID), err)
	}
	return false, nil
}

func (r *Reviewer) ask(ctx context.Context) (action, error) {
	for {
		r.printf("%s", promptText)
		line, err := r.input.next(ctx)
		if err != nil {
			return 0, err
		}
		if act, ok := parseAnswer(line); ok {
			return act, nil
		}
		r.printf("Please answer y, n, s, or q.\n")
	}
}

func (r *Reviewer) unskipped(items []*queue.Item) []*queue.Item {
	if len(r.skipped) == 0 {
		return items
	}
	out := items[:0:0]
	for _, item := range items {
		if _, skip := r.skipped[item.ID]; !skip {
			out = append(out, item)
		}
	}
	return out
}

// idle waits one poll interval. It returns false when ctx ends first.
func (r *Reviewer) idle(ctx context.Context) bool {
	timer := time.NewTimer(r.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Reviewer) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
