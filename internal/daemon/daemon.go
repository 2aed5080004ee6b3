package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"postgate/internal/api"
	"postgate/internal/config"
	"postgate/internal/httpapi"
	"postgate/internal/logging"
	"postgate/internal/notifications"
	"postgate/internal/queue"
	"postgate/internal/sweeper"
)

const (
	// LockFileName is held with an exclusive flock while a daemon runs.
	LockFileName = "postgated.lock"
	// PIDFileName records the daemon process id next to the lock.
	PIDFileName = "postgated.pid"
)

// Daemon owns the queue store for the lifetime of the process and runs the
// background services around it.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	service *api.QueueService
	sweeper *sweeper.Sweeper
	http    *httpapi.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	started time.Time
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	QueueDBPath  string
	LockFilePath string
	APIAddress   string
	Queue        api.QueueStatus
	QueueError   string
	Sweeper      sweeper.Status
}

type options struct {
	registry *prometheus.Registry
}

// Option customizes daemon construction.
type Option func(*options)

// WithRegistry registers queue metrics on reg and serves it at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// New constructs a daemon around an open store.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	serviceOpts := []api.ServiceOption{
		api.WithDefaultTimeout(cfg.DefaultTimeout()),
		api.WithLogger(logger),
		api.WithNotifier(notifications.NewService(cfg)),
	}
	var gatherer prometheus.Gatherer
	if o.registry != nil {
		serviceOpts = append(serviceOpts, api.WithMetrics(api.NewMetrics(o.registry)))
		gatherer = o.registry
	}
	service := api.NewQueueService(store, serviceOpts...)

	d := &Daemon{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		store:   store,
		service: service,
		sweeper: sweeper.New(service, sweeper.Options{
			Interval:         cfg.SweepInterval(),
			PendingMaxAge:    cfg.PendingMaxAge(),
			DecidedRetention: cfg.DecidedRetention(),
			Logger:           logger,
			Now:              service.Now,
		}),
		lockPath: filepath.Join(cfg.Paths.DataDir, LockFileName),
	}
	d.lock = flock.New(d.lockPath)
	if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
		d.http = httpapi.New(service, httpapi.Options{Bind: bind, Logger: logger, Gatherer: gatherer})
	}
	return d, nil
}

// Start acquires the daemon lock, then launches the sweeper and HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another postgate daemon is already running for %s", d.cfg.Paths.DataDir)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.sweeper.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start sweeper: %w", err)
	}
	if d.http != nil {
		if err := d.http.Start(runCtx); err != nil {
			d.sweeper.Stop()
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start http: %w", err)
		}
	}

	d.cancel = cancel
	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("postgate daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
		logging.String("api_address", d.APIAddress()),
	)
	return nil
}

// Stop halts the HTTP server and sweeper and releases the daemon lock. The
// store stays open until Close.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.http.Stop()
	d.sweeper.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("postgate daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Service exposes the queue service the daemon's front ends share.
func (d *Daemon) Service() *api.QueueService {
	return d.service
}

// SweepNow runs one sweep pass outside the ticker.
func (d *Daemon) SweepNow(ctx context.Context) (sweeper.Result, error) {
	return d.sweeper.RunOnce(ctx)
}

// APIAddress returns the bound HTTP address, or empty when HTTP is disabled
// or not yet started.
func (d *Daemon) APIAddress() string {
	return d.http.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.started,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
		Sweeper:      d.sweeper.Status(),
	}
	queueStatus, err := d.service.Status(ctx)
	if err != nil {
		status.QueueError = err.Error()
	} else {
		status.Queue = queueStatus
	}
	return status
}
