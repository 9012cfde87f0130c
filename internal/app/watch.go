package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/config"
	"github.com/blackwell-systems/flowwatch/internal/exporter"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/watcher"
)

var (
	watchDaemon   bool
	watchInterval string
	watchStop     bool
	watchQuiet    bool
	watchDesktop  bool
	watchWIPLimit int
	watchTextfile string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll a board and alert on WIP spikes and aging tasks",
	Long: `Re-read the board at a fixed interval and compare each reading with the
previous one. Alerts fire when a task ages past the highest percentile of its
stage, when WIP in a stage jumps, when lead time or predictability worsens,
and when tasks complete.

Examples:
  flowwatch watch --board 42                   # foreground, ctrl-c to stop
  flowwatch watch --daemon                     # background, PID and log file
  flowwatch watch --interval 30m --wip-limit 12
  flowwatch watch --textfile /var/lib/node_exporter/flowwatch.prom
  flowwatch watch --stop                       # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "10m", "Check interval as duration string (e.g. 5m, 1h)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchDesktop, "desktop", false, "Send desktop notifications")
	watchCmd.Flags().IntVar(&watchWIPLimit, "wip-limit", 0, "Alert when total WIP exceeds this many tasks")
	watchCmd.Flags().StringVar(&watchTextfile, "textfile", "", "Rewrite this Prometheus textfile on every check")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon(cmd.OutOrStdout())
	}

	interval, err := parseInterval(watchInterval)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if watchDaemon {
		return runDaemon(ctx, interval)
	}
	return runForeground(ctx, cmd.OutOrStdout(), interval)
}

func parseInterval(s string) (time.Duration, error) {
	interval, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if interval < 30*time.Second {
		return 0, fmt.Errorf("interval must be at least 30s, got %s", interval)
	}
	return interval, nil
}

// boardSnapshot reads the board through openSession on every call. With
// --textfile it also refreshes the Prometheus textfile.
func boardSnapshot(ctx context.Context) (*watcher.State, error) {
	s, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	months := cfg.Defaults.PredictabilityMonths

	if watchTextfile != "" {
		e := exporter.New()
		e.Observe(buildReport(s, months))
		if err := e.WriteTextfile(watchTextfile); err != nil {
			logger.Warn("writing textfile", "path", watchTextfile, "err", err)
		}
	}
	return watcher.StateFromBoard(s.Board, s.Query, months), nil
}

// runForeground runs the watcher with live terminal output.
func runForeground(ctx context.Context, out io.Writer, interval time.Duration) error {
	notifier := watcher.Notifier{Desktop: watchDesktop, Fallback: io.Discard}
	if watchQuiet {
		notifier.Fallback = os.Stderr
	}
	alertFn := func(a watcher.Alert) {
		if watchDesktop || watchQuiet {
			_ = notifier.Notify(a)
		}
		if !watchQuiet {
			printAlert(out, a)
		}
	}

	w := watcher.New(boardSnapshot, interval, alertFn)
	w.WIPLimit = watchWIPLimit

	initial, err := w.Start(ctx)
	if err != nil {
		return err
	}
	if !watchQuiet {
		fmt.Fprintf(out, "flowwatch watching... (checking every %s)\n", interval)
		printBaseline(out, initial)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(ctx context.Context, interval time.Duration) error {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file.
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	dlog := slog.New(slog.NewTextHandler(logFile, nil))
	logger = dlog
	dlog.Info("daemon started", "pid", pid, "interval", interval)

	notifier := watcher.Notifier{Desktop: watchDesktop, Fallback: io.Discard}
	alertFn := func(a watcher.Alert) {
		_ = notifier.Notify(a)
		dlog.Info(a.Title, "level", a.Level, "message", a.Message)
	}

	w := watcher.New(boardSnapshot, interval, alertFn)
	w.WIPLimit = watchWIPLimit

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		dlog.Info("daemon stopped")
		return nil
	}
	return err
}

// stopDaemon terminates the daemon named in the PID file and removes the
// file. A stale PID file is removed and reported as an error.
func stopDaemon(w io.Writer) error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no daemon running (could not read PID file: %v)", err)
	}
	if !processExists(pid) {
		_ = os.Remove(pidFilePath())
		return fmt.Errorf("no daemon running (PID %d is not active, cleaned up stale PID file)", pid)
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("stopping daemon (PID %d): %w", pid, err)
	}
	_ = os.Remove(pidFilePath())
	fmt.Fprintf(w, "Stopped daemon (PID %d)\n", pid)
	return nil
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// printBaseline reports the first reading.
func printBaseline(w io.Writer, s *watcher.State) {
	fmt.Fprintf(w, "[%s] %s Baseline: %d in progress, %d completed, %d aging past their zones\n",
		time.Now().Format("15:04:05"),
		output.StyleSuccess.Render(alertIcon("info")),
		s.TotalWIP, len(s.Completed), len(s.Overdue))
}

// printAlert formats and prints an alert to the terminal.
func printAlert(w io.Writer, a watcher.Alert) {
	fmt.Fprintf(w, "[%s] %s %s\n", a.Time.Format("15:04:05"), alertIcon(a.Level), alertStyle(a.Level).Render(a.Title))
	if a.Message != "" {
		fmt.Fprintf(w, "         %s\n", output.StyleMuted.Render(a.Message))
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case "critical":
		return "\xf0\x9f\x94\xb4" // red circle
	case "warning":
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning sign
	case "info":
		return "\xe2\x9c\x93" // check mark
	default:
		return " "
	}
}

func alertStyle(level string) lipgloss.Style {
	switch level {
	case "critical":
		return output.StyleError
	case "warning":
		return output.StyleWarning
	default:
		return output.StyleBold
	}
}
