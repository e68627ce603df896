//go:build !unix

package filelock

// processAlive cannot check other processes on this platform, so every owner counts as running.
func processAlive(pid int) bool {
	return true
}
