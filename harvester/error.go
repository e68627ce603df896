package harvester

import "fmt"

// FileOperationError is returned when a downloaded file cannot be written to disk.
type FileOperationError struct {
	Op  string
	Err error
}

func (e FileOperationError) Error() string {
	return fmt.Sprintf("file operation failed: %s: %v", e.Op, e.Err)
}

func (e FileOperationError) Unwrap() error {
	return e.Err
}
