//go:build unix

package filelock

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exitedPID returns the PID of a child process that has already exited and been reaped.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	require.NoError(t, cmd.Run())
	return cmd.Process.Pid
}

func writeOwner(t *testing.T, store string, owner Owner) {
	t.Helper()
	data, err := json.Marshal(owner)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store+".lock", data, 0o600))
}

func TestTryLockTakesOverDeadOwner(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")
	writeOwner(t, store, Owner{PID: exitedPID(t), Acquired: time.Now().Add(-24 * time.Hour)})

	unlock, err := TryLock(store)
	require.NoError(t, err)
	defer unlock()

	owner, err := ReadOwner(store)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), owner.PID)
}

func TestTryLockKeepsLiveOwner(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")
	// The parent of the test binary is alive for the whole test.
	writeOwner(t, store, Owner{PID: os.Getppid(), Acquired: time.Now()})

	_, err := TryLock(store)
	assert.ErrorIs(t, err, ErrLockHeld)

	owner, err := ReadOwner(store)
	require.NoError(t, err)
	assert.Equal(t, os.Getppid(), owner.PID)
}

func TestTryLockKeepsOwnerWithoutPID(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")
	writeOwner(t, store, Owner{Acquired: time.Now()})

	_, err := TryLock(store)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(exitedPID(t)))
}
