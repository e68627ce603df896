//go:build unix

package filelock

import (
	"errors"
	"syscall"
)

// processAlive reports whether pid names a running process.
// A process owned by another user counts as running.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || !errors.Is(err, syscall.ESRCH)
}
