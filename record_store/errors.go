package record_store

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is returned by Upsert for records that cannot be stored.
var ErrInvalidRecord = errors.New("invalid file record")

// StoreError wraps any failure of the underlying database.
// A StoreError means bookkeeping can no longer be trusted and the run must stop.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
