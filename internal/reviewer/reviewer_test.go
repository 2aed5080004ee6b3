package reviewer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"postgate/internal/api"
	"postgate/internal/queue"
	"postgate/internal/testsupport"
)

type reviewFixture struct {
	svc   *api.QueueService
	clock *testsupport.Clock
}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	clock := testsupport.NewClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), queue.WithClock(clock.Now))
	return reviewFixture{svc: api.NewQueueService(store), clock: clock}
}

func (f reviewFixture) submit(t *testing.T, content string, timeout time.Duration) *queue.Item {
	t.Helper()
	item, err := f.svc.Submit(context.Background(), content, map[string]any{"source": "test"}, api.WithTimeout(timeout))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	f.clock.Advance(time.Second)
	return item
}

func (f reviewFixture) status(t *testing.T, id string) queue.Status {
	t.Helper()
	item, err := f.svc.Get(context.Background(), id)
	if err != nil || item == nil {
		t.Fatalf("Get %s: item=%v err=%v", id, item, err)
	}
	return item.Status
}

func runReviewer(t *testing.T, svc Service, input string, once bool) (Summary, string) {
	t.Helper()
	var out bytes.Buffer
	off := false
	r := New(svc, Options{
		In:           strings.NewReader(input),
		Out:          &out,
		PollInterval: 10 * time.Millisecond,
		Color:        &off,
		Once:         once,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	summary, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary, out.String()
}

func TestReviewerPresentsOldestFirstAndApplies(t *testing.T) {
	f := newReviewFixture(t)
	first := f.submit(t, "first post", time.Hour)
	second := f.submit(t, "second post", time.Hour)

	summary, out := runReviewer(t, f.svc, "y\nno\n", true)

	if summary.Approved != 1 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if f.status(t, first.ID) != queue.StatusApproved {
		t.Fatal("expected oldest item to receive the first answer")
	}
	if f.status(t, second.ID) != queue.StatusRejected {
		t.Fatal("expected newer item to be rejected")
	}
	if strings.Index(out, "first post") > strings.Index(out, "second post") {
		t.Fatalf("expected oldest item rendered first:\n%s", out)
	}
	if !strings.Contains(out, "meta.source") || !strings.Contains(out, "from now") {
		t.Fatalf("expected metadata and relative expiry in card:\n%s", out)
	}

	item, err := f.svc.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.DecidedBy != queue.ActorCLI {
		t.Fatalf("expected cli attribution, got %q", item.DecidedBy)
	}
}

func TestReviewerRepromptsOnUnknownInput(t *testing.T) {
	f := newReviewFixture(t)
	item := f.submit(t, "maybe", time.Hour)

	summary, out := runReviewer(t, f.svc, "maybe\n\nYES\n", true)
	if summary.Approved != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if strings.Count(out, "Please answer") != 2 {
		t.Fatalf("expected two re-prompts:\n%s", out)
	}
	if f.status(t, item.ID) != queue.StatusApproved {
		t.Fatal("expected approval after valid answer")
	}
}

func TestReviewerSkipQuitAndEOFLeavePending(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  Summary
	}{
		{"skip", "s\n", Summary{Skipped: 1}},
		{"quit", "q\n", Summary{}},
		{"eof", "", Summary{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReviewFixture(t)
			item := f.submit(t, "undecided", time.Hour)

			summary, _ := runReviewer(t, f.svc, tc.input, true)
			if summary != tc.want {
				t.Fatalf("summary %+v, want %+v", summary, tc.want)
			}
			if f.status(t, item.ID) != queue.StatusPending {
				t.Fatal("expected item to remain pending")
			}
		})
	}
}

func TestReviewerSkipsExpiredItems(t *testing.T) {
	f := newReviewFixture(t)
	expired := f.submit(t, "stale", time.Second)
	fresh := f.submit(t, "fresh", time.Hour)
	f.clock.Advance(time.Minute)

	summary, out := runReviewer(t, f.svc, "y\n", true)
	if summary.Approved != 1 || summary.Missed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if strings.Contains(out, "stale") {
		t.Fatalf("expired item should not be presented:\n%s", out)
	}
	if f.status(t, expired.ID) != queue.StatusPending {
		t.Fatal("reviewer must leave expired items for the sweeper")
	}
	if f.status(t, fresh.ID) != queue.StatusApproved {
		t.Fatal("expected fresh item approved")
	}
}

// racingService decides every item elsewhere between the listing and the
// reviewer's decision.
type racingService struct {
	mu      sync.Mutex
	item    *queue.Item
	decided bool
	getHits int
}

func (s *racingService) Pending(context.Context) ([]*queue.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decided {
		return nil, nil
	}
	return []*queue.Item{s.item}, nil
}

func (s *racingService) Get(context.Context, string) (*queue.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getHits++
	return s.item, nil
}

func (s *racingService) ApproveAs(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decided = true
	return queue.ErrNotFoundOrExpired
}

func (s *racingService) RejectAs(ctx context.Context, id, actor string) error {
	return s.ApproveAs(ctx, id, actor)
}

func (s *racingService) Now() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestReviewerReportsLostRace(t *testing.T) {
	svc := &racingService{item: &queue.Item{
		ID:        "0190aaaa-bbbb-7ccc-8ddd-eeeeffff0000",
		Content:   "contested",
		Status:    queue.StatusPending,
		CreatedAt: time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}}

	summary, out := runReviewer(t, svc, "y\n", true)
	if summary.Missed != 1 || summary.Approved != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !strings.Contains(out, "decided elsewhere or expired") {
		t.Fatalf("expected skipped message:\n%s", out)
	}
	if svc.getHits != 1 {
		t.Fatalf("expected one re-read before prompting, got %d", svc.getHits)
	}
}

func TestReviewerIdlesUntilCancelled(t *testing.T) {
	f := newReviewFixture(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	off := false
	r := New(f.svc, Options{In: pr, Out: &out, PollInterval: 5 * time.Millisecond, Color: &off})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reviewer did not stop after cancellation")
	}
}

func TestLineReaderExitsAfterStop(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	lr := newLineReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lr.next(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	lr.stop()

	written := make(chan error, 1)
	go func() {
		_, err := pw.Write([]byte("y\n"))
		written <- err
	}()
	select {
	case err := <-written:
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine never consumed the pending line")
	}

	select {
	case err := <-lr.err:
		if err != errInputClosed {
			t.Fatalf("expected errInputClosed after stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine still blocked after stop")
	}
	if _, ok := <-lr.lines; ok {
		t.Fatal("expected lines channel to be closed")
	}
}

func TestParseAnswer(t *testing.T) {
	cases := map[string]action{"y": actionApprove, " Yes ": actionApprove, "n": actionReject, "NO": actionReject, "s": actionSkip, "q": actionQuit}
	for input, want := range cases {
		got, ok := parseAnswer(input)
		if !ok || got != want {
			t.Fatalf("parseAnswer(%q) = %v, %v", input, got, ok)
		}
	}
	for _, input := range []string{"", "yep", "approve", "x"} {
		if _, ok := parseAnswer(input); ok {
			t.Fatalf("parseAnswer(%q) should be rejected", input)
		}
	}
}
