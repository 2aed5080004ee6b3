package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"postgate/internal/logging"
)

// ErrInFlight is returned by RunOnce when another pass is already running.
var ErrInFlight = errors.New("sweep already in progress")

// Service is the subset of the queue API a sweep pass needs.
type Service interface {
	Sweep(ctx context.Context) (int64, error)
	CleanupOld(ctx context.Context, maxAge time.Duration) (int64, error)
	PurgeDecided(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Options configures a Sweeper. Zero retention durations disable the
// corresponding deletion.
type Options struct {
	Interval         time.Duration
	PendingMaxAge    time.Duration
	DecidedRetention time.Duration
	Logger           *slog.Logger
	// Now stamps pass results. Defaults to time.Now.
	Now func() time.Time
}

// Result summarizes one pass.
type Result struct {
	Expired  int64
	Cleaned  int64
	Purged   int64
	Started  time.Time
	Finished time.Time
}

// Status reports the sweeper's lifecycle and most recent pass.
type Status struct {
	Running   bool
	Interval  time.Duration
	Runs      int64
	LastRun   Result
	LastError string
}

// Sweeper periodically expires stale pending items.
type Sweeper struct {
	svc              Service
	logger           *slog.Logger
	interval         time.Duration
	pendingMaxAge    time.Duration
	decidedRetention time.Duration
	now              func() time.Time

	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runs    int64
	last    Result
	lastErr string
}

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 5 * time.Minute

// New constructs a Sweeper.
func New(svc Service, opts Options) *Sweeper {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		svc:              svc,
		logger:           logging.NewComponentLogger(opts.Logger, "sweeper"),
		interval:         interval,
		pendingMaxAge:    opts.PendingMaxAge,
		decidedRetention: opts.DecidedRetention,
		now:              now,
	}
}

// Start launches the background loop. The first pass runs immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil || s.svc == nil {
		return errors.New("sweeper requires a queue service")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("sweeper already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(runCtx)
	s.logger.Info("sweeper started",
		logging.Duration("interval", s.interval),
		logging.Duration("pending_max_age", s.pendingMaxAge),
		logging.Duration("decided_retention", s.decidedRetention),
	)
	return nil
}

// Stop ends the loop. A pass already running is allowed to complete before
// Stop returns.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
		switch {
		case errors.Is(err, ErrInFlight):
			s.logger.Debug("sweep skipped; previous pass still running")
		default:
			logging.WarnWithContext(s.logger, "sweep failed; will retry next interval", "sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access and free space"),
				logging.String(logging.FieldImpact, "expired items stay pending until the next successful sweep"),
			)
		}
	}
}

// RunOnce performs a single pass. It returns ErrInFlight without doing any
// work when another pass (from the loop or another caller) is running.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer s.inFlight.Store(false)

	result := Result{Started: s.now()}
	err := s.pass(ctx, &result)
	result.Finished = s.now()

	s.mu.Lock()
	s.runs++
	s.last = result
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	return result, err
}

func (s *Sweeper) pass(ctx context.Context, result *Result) error {
	expired, err := s.svc.Sweep(ctx)
	if err != nil {
		return err
	}
	result.Expired = expired

	if s.pendingMaxAge > 0 {
		cleaned, err := s.svc.CleanupOld(ctx, s.pendingMaxAge)
		if err != nil {
			return err
		}
		result.Cleaned = cleaned
	}
	if s.decidedRetention > 0 {
		purged, err := s.svc.PurgeDecided(ctx, s.decidedRetention)
		if err != nil {
			return err
		}
		result.Purged = purged
	}
	if result.Expired > 0 || result.Cleaned > 0 || result.Purged > 0 {
		s.logger.Debug("sweep pass complete",
			logging.Int64("expired", result.Expired),
			logging.Int64("cleaned", result.Cleaned),
			logging.Int64("purged", result.Purged),
		)
	}
	return nil
}

// Status returns a snapshot of the sweeper state.
func (s *Sweeper) Status() Status {
	if s == nil {
		return Status{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:   s.running,
		Interval:  s.interval,
		Runs:      s.runs,
		LastRun:   s.last,
		LastError: s.lastErr,
	}
}
