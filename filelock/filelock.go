// Package filelock guarantees that only one harvest run works against a given
// record store at a time, even across processes.
package filelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLockHeld is returned when attempting to acquire a lock that is already held.
var ErrLockHeld = errors.New("lock already held")

// Owner describes the process holding a lock. It is stored as JSON inside the lock file.
type Owner struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// LockPath returns the lock file guarding path.
func LockPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath + ".lock", nil
}

// TryLock attempts to acquire the lock guarding path without blocking.
// It returns a function releasing the lock, or ErrLockHeld if another holder exists.
// A lock file left behind by a process that no longer exists is taken over.
// A lock file whose owner cannot be read keeps blocking; ReadOwner tells the
// operator what it contains.
func TryLock(path string) (func(), error) {
	lockFile, err := LockPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(lockFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := createLockFile(lockFile)
	if errors.Is(err, ErrLockHeld) && removeStale(lockFile) {
		f, err = createLockFile(lockFile)
	}
	if err != nil {
		return nil, err
	}
	owner := Owner{PID: os.Getpid(), Acquired: time.Now().UTC()}
	encErr := json.NewEncoder(f).Encode(owner)
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		os.Remove(lockFile)
		return nil, fmt.Errorf("failed to write lock file: %w", errors.Join(encErr, closeErr))
	}

	unlock := func() {
		os.Remove(lockFile)
	}
	return unlock, nil
}

// createLockFile creates lockFile exclusively. O_EXCL makes creation fail if the file already exists.
func createLockFile(lockFile string) (*os.File, error) {
	f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	return f, nil
}

// removeStale deletes lockFile when its recorded owner process is gone.
// It reports whether the file was removed.
func removeStale(lockFile string) bool {
	data, err := os.ReadFile(lockFile)
	if err != nil {
		return false
	}
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil || owner.PID <= 0 {
		return false
	}
	if processAlive(owner.PID) {
		return false
	}
	return os.Remove(lockFile) == nil
}

// ReadOwner reports who holds the lock guarding path.
func ReadOwner(path string) (Owner, error) {
	lockFile, err := LockPath(path)
	if err != nil {
		return Owner{}, err
	}
	data, err := os.ReadFile(lockFile)
	if err != nil {
		return Owner{}, err
	}
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil {
		return Owner{}, fmt.Errorf("malformed lock file %s: %w", lockFile, err)
	}
	return owner, nil
}
