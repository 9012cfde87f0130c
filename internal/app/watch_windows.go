//go:build windows

package app

import "os"

var shutdownSignals = []os.Signal{os.Interrupt}

func processExists(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Windows; a nil signal fails for a
	// process that is gone.
	return proc.Signal(os.Signal(nil)) == nil
}

// terminate kills the daemon. Windows has no SIGTERM, so the daemon does
// not get to remove its PID file.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
