package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"postgate/internal/config"
	"postgate/internal/daemon"
)

const pollInterval = 100 * time.Millisecond

// ErrDaemonNotRunning indicates no daemon holds the lock for the data directory.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Info describes the daemon process for a data directory.
type Info struct {
	Running  bool
	PID      int
	LockPath string
	PIDPath  string
}

// LaunchOptions controls how a background daemon is started.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// ProcessInfo probes the daemon lock. The lock is authoritative; the pid file
// only names the process holding it.
func ProcessInfo(cfg *config.Config) (Info, error) {
	if cfg == nil {
		return Info{}, errors.New("config is required")
	}
	info := Info{
		LockPath: filepath.Join(cfg.Paths.DataDir, daemon.LockFileName),
		PIDPath:  filepath.Join(cfg.Paths.DataDir, daemon.PIDFileName),
	}
	if _, err := os.Stat(info.LockPath); errors.Is(err, os.ErrNotExist) {
		return info, nil
	}

	lock := flock.New(info.LockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return info, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return info, nil
	}
	info.Running = true
	info.PID = readPID(info.PIDPath)
	return info, nil
}

// Launch starts a detached `daemon` subcommand of executablePath.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// EnsureStarted launches the daemon unless one already runs and waits until
// it holds the lock.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	info, err := ProcessInfo(cfg)
	if err != nil {
		return StartResult{}, err
	}
	if info.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: info.PID}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	info, err = waitFor(cfg, waitTimeout, true)
	if err != nil {
		return StartResult{}, fmt.Errorf("daemon did not start (see `postgate logs`): %w", err)
	}
	return StartResult{State: StartStateStarted, PID: info.PID}, nil
}

// Stop sends SIGTERM to the daemon and waits gracePeriod for it to release
// the lock before killing it.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	info, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !info.Running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if info.PID <= 0 {
		return StopResult{}, fmt.Errorf("daemon holds %s but pid file %s is missing", info.LockPath, info.PIDPath)
	}
	if info.PID == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", info.PID)
	}

	result := StopResult{PID: info.PID}
	if err := syscall.Kill(info.PID, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return result, fmt.Errorf("signal daemon process %d: %w", info.PID, err)
	}
	if _, err := waitFor(cfg, gracePeriod, false); err == nil {
		return result, nil
	}

	if err := syscall.Kill(info.PID, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", info.PID, err)
	}
	result.ForcedKill = true
	if err := os.Remove(info.PIDPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", info.PIDPath, err)
	}
	return result, nil
}

// waitFor polls until the daemon's running state equals running.
func waitFor(cfg *config.Config, timeout time.Duration, running bool) (Info, error) {
	deadline := time.Now().Add(timeout)
	for {
		info, err := ProcessInfo(cfg)
		if err != nil {
			return info, err
		}
		if info.Running == running && (!running || info.PID > 0) {
			return info, nil
		}
		if time.Now().After(deadline) {
			return info, fmt.Errorf("timed out after %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
