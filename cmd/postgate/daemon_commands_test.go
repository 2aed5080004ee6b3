package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gofrs/flock"

	"postgate/internal/daemon"
)

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "submit", "waiting"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "HTTP review:")
	requireContains(t, out, "disabled")
	requireContains(t, out, "pending:")
	requireContains(t, out, "1")

	out, _, err = runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStatusReportsLockHolder(t *testing.T) {
	env := setupCLITestEnv(t)
	lock := flock.New(filepath.Join(env.cfg.Paths.DataDir, daemon.LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	pidPath := filepath.Join(env.cfg.Paths.DataDir, daemon.PIDFileName)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(31337)), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	out, _, err := runCLI(t, env, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var payload struct {
		Daemon struct {
			Running bool `json:"running"`
			PID     int  `json:"pid"`
		} `json:"daemon"`
		Queue struct {
			Counts map[string]int `json:"counts"`
		} `json:"queue"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !payload.Daemon.Running || payload.Daemon.PID != 31337 {
		t.Fatalf("unexpected daemon status %+v", payload.Daemon)
	}

	out, _, err = runCLI(t, env, "start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running (pid 31337)")
}
