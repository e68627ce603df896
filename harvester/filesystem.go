package harvester

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemOperations abstracts file system operations for the Engine, allowing for easy mocking in tests.
type FileSystemOperations interface {
	// Exists reports whether a regular file is present at path.
	Exists(path string) bool
	// WriteFile streams r into path, creating parent directories with dirPerm.
	// The content is written to a temporary file next to path and renamed into
	// place, so a failed write never replaces an existing file.
	WriteFile(path string, r io.Reader, dirPerm os.FileMode, filePerm os.FileMode) (int64, error)
}

// DefaultFileSystem provides a production implementation of FileSystemOperations using the os package.
type DefaultFileSystem struct{}

// Exists reports whether a regular file is present at path.
func (fs *DefaultFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteFile streams r into path through a temporary file.
func (fs *DefaultFileSystem) WriteFile(path string, r io.Reader, dirPerm os.FileMode, filePerm os.FileMode) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, FileOperationError{Op: fmt.Sprintf("MkdirAll for %s", dir), Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, FileOperationError{Op: fmt.Sprintf("CreateTemp in %s", dir), Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return n, FileOperationError{Op: fmt.Sprintf("write %s", path), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return n, FileOperationError{Op: fmt.Sprintf("sync %s", tmpName), Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, FileOperationError{Op: fmt.Sprintf("close %s", tmpName), Err: err}
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return n, FileOperationError{Op: fmt.Sprintf("chmod %s", tmpName), Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, FileOperationError{Op: fmt.Sprintf("rename to %s", path), Err: err}
	}
	return n, nil
}
