package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Notifier delivers alerts. With Desktop set it uses osascript on macOS and
// notify-send on Linux; otherwise, or when those fail, it writes a line to
// Fallback (stderr when nil).
type Notifier struct {
	Desktop  bool
	Fallback io.Writer
}

// Notify delivers one alert.
func (n Notifier) Notify(alert Alert) error {
	if n.Desktop {
		var err error
		switch runtime.GOOS {
		case "darwin":
			err = notifyMacOS(alert)
		case "linux":
			err = notifyLinux(alert)
		default:
			err = fmt.Errorf("no desktop notifications on %s", runtime.GOOS)
		}
		if err == nil {
			return nil
		}
	}
	return n.fallback(alert)
}

func notifyMacOS(alert Alert) error {
	script := fmt.Sprintf(
		`display notification %q with title "flowwatch" subtitle %q`,
		alert.Message, alert.Title,
	)
	return exec.Command("osascript", "-e", script).Run()
}

func notifyLinux(alert Alert) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return err
	}
	urgency := "normal"
	switch alert.Level {
	case "critical":
		urgency = "critical"
	case "info":
		urgency = "low"
	}
	return exec.Command("notify-send", "-u", urgency, "flowwatch: "+alert.Title, alert.Message).Run()
}

func (n Notifier) fallback(alert Alert) error {
	w := n.Fallback
	if w == nil {
		w = os.Stderr
	}
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
