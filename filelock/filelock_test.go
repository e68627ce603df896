package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLock(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")

	// First lock should succeed
	unlock1, err := TryLock(store)
	require.NoError(t, err)

	// Second lock should fail
	_, err = TryLock(store)
	assert.ErrorIs(t, err, ErrLockHeld)

	unlock1()

	// Should be able to lock again after unlock
	unlock2, err := TryLock(store)
	require.NoError(t, err)
	unlock2()
}

func TestLockFileCleanup(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")

	unlock, err := TryLock(store)
	require.NoError(t, err)

	_, err = os.Stat(store + ".lock")
	assert.NoError(t, err, "lock file was not created")

	unlock()

	_, err = os.Stat(store + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file was not removed")
}

func TestTryLockCreatesParentDirectory(t *testing.T) {
	store := filepath.Join(t.TempDir(), "nested", "dir", "state.sqlite")

	unlock, err := TryLock(store)
	require.NoError(t, err)
	defer unlock()

	_, err = os.Stat(filepath.Dir(store))
	assert.NoError(t, err)
}

func TestReadOwner(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")
	before := time.Now().UTC().Add(-time.Second)

	unlock, err := TryLock(store)
	require.NoError(t, err)
	defer unlock()

	owner, err := ReadOwner(store)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), owner.PID)
	assert.True(t, owner.Acquired.After(before), "acquired time should be recent")
}

func TestReadOwnerMalformed(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state.sqlite")
	require.NoError(t, os.WriteFile(store+".lock", []byte("not json"), 0o600))

	_, err := ReadOwner(store)
	assert.Error(t, err)

	// A malformed lock still blocks acquisition.
	_, err = TryLock(store)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestConcurrentLocks(t *testing.T) {
	store := filepath.Join(t.TempDir(), "concurrent.sqlite")

	firstLockAcquired := make(chan struct{})
	testComplete := make(chan struct{})
	errCh := make(chan error, 2)

	go func() {
		unlock, err := TryLock(store)
		if err != nil {
			errCh <- fmt.Errorf("first lock failed: %w", err)
			close(firstLockAcquired)
			return
		}
		defer unlock()
		close(firstLockAcquired)
		<-testComplete
	}()

	go func() {
		<-firstLockAcquired
		_, err := TryLock(store)
		errCh <- err
		close(testComplete)
	}()

	err := <-errCh
	assert.ErrorIs(t, err, ErrLockHeld)

	select {
	case err := <-errCh:
		t.Fatalf("Unexpected error from goroutines: %v", err)
	default:
	}
}

func TestLockInReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Skipping test when running as root user")
	}

	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0o555))

	_, err := TryLock(filepath.Join(readOnlyDir, "state.sqlite"))
	if assert.Error(t, err) {
		assert.True(t, os.IsPermission(err) || strings.Contains(err.Error(), "permission denied"),
			"expected permission denied error, got: %v", err)
	}
}
