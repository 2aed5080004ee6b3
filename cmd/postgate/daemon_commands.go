package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"postgate/internal/daemonctl"
	"postgate/internal/logs"
)

const (
	daemonStartWait = 10 * time.Second
	daemonStopGrace = 5 * time.Second
)

func newDaemonControlCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the postgate daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{LogLevel: startLogLevel}
			if ctx.configFlag != nil {
				opts.ConfigPath = strings.TrimSpace(*ctx.configFlag)
			}

			result, err := daemonctl.EnsureStarted(cfg, exe, opts, daemonStartWait)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background postgate daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg, daemonStopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit within %s; killed pid %d\n", daemonStopGrace, result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(env serviceEnv) error {
				info, err := daemonctl.ProcessInfo(env.cfg)
				if err != nil {
					return err
				}
				queueStatus, err := env.svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				logPath, _ := logs.CurrentPath(env.cfg.Paths.LogDir)

				if statusJSON {
					return writeJSON(cmd, map[string]any{
						"daemon": map[string]any{
							"running":   info.Running,
							"pid":       info.PID,
							"lock_path": info.LockPath,
							"api_bind":  env.cfg.Paths.APIBind,
							"log_path":  logPath,
						},
						"queue": queueStatus,
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Daemon", colorize)
				if info.Running {
					lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", info.PID), colorize))
				} else {
					lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running; expired items wait for the next sweep", colorize))
				}
				api := env.cfg.Paths.APIBind
				if api == "" {
					api = "disabled"
				} else {
					api = "http://" + api
				}
				lines = append(lines,
					renderStatusLine("HTTP review", statusInfo, api, false),
					renderStatusLine("Notifications", statusInfo, notificationLabel(env.cfg.Notifications.NtfyTopic), false),
					renderStatusLine("Run log", statusInfo, dash(logPath), false),
					"",
				)
				lines = append(lines, renderSectionHeader("Queue", colorize)...)
				for _, name := range []string{"pending", "approved", "rejected"} {
					lines = append(lines, renderStatusLine(name, statusInfo, humanize.Comma(int64(queueStatus.Counts[name])), false))
				}
				lines = append(lines, renderStatusLine("Database", statusInfo, queueStatus.DatabasePath, false))
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func notificationLabel(topic string) string {
	if topic == "" {
		return "disabled"
	}
	return "ntfy " + topic
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
