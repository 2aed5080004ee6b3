package daemon_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"postgate/internal/daemon"
	"postgate/internal/logging"
	"postgate/internal/queue"
	"postgate/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop(), daemon.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != filepath.Join(cfg.Paths.DataDir, daemon.LockFileName) {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.QueueDBPath != cfg.QueueDBPath() {
		t.Fatalf("unexpected db path %q", status.QueueDBPath)
	}
	if status.APIAddress == "" {
		t.Fatal("expected HTTP server to be listening")
	}
	if !status.Sweeper.Running {
		t.Fatal("expected sweeper to be running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.Sweeper.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.APIAddress != "" {
		t.Fatalf("expected HTTP server to be closed, got %q", status.APIAddress)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail while the lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected second daemon to start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonSweepsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	clock := testsupport.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store := testsupport.MustOpenStore(t, cfg, queue.WithClock(clock.Now))
	item := testsupport.Submit(t, store, "stale", time.Minute)
	clock.Advance(2 * time.Minute)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status == queue.StatusRejected {
			if got.DecidedBy != queue.ActorSweeper {
				t.Fatalf("expected sweeper actor, got %q", got.DecidedBy)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item was not swept, status %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	result, err := d.SweepNow(ctx)
	if err != nil {
		t.Fatalf("SweepNow: %v", err)
	}
	if result.Expired != 0 {
		t.Fatalf("expected idempotent sweep, expired %d", result.Expired)
	}
}

func TestDaemonServesHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop(), daemon.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	for _, path := range []string{"/api/queue/pending-tweets", "/api/status", "/metrics", "/"} {
		resp, err := http.Get("http://" + d.APIAddress() + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}

func TestDaemonCloseReleasesStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Fatal("expected store to be closed")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, daemon.LockFileName)); err != nil {
		t.Fatalf("expected lock file to remain on disk: %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
