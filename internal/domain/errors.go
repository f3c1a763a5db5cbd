package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError: a required field is missing or empty, or the payload is not a record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s is required", e.Field)
}

// AssetFetchError is recoverable: the listing continues without an image.
type AssetFetchError struct {
	ExternalID string
	URL        string
	Op         string // fetch|store
	Err        error
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("asset %s for %s (%s): %v", e.Op, e.ExternalID, e.URL, e.Err)
}

func (e *AssetFetchError) Unwrap() error { return e.Err }

// DuplicateRecordError: the external identifier is already persisted.
type DuplicateRecordError struct {
	ExternalID string
	Err        error
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate listing %q", e.ExternalID)
}

func (e *DuplicateRecordError) Unwrap() error { return e.Err }

// PersistenceError covers every storage failure other than a duplicate key.
type PersistenceError struct {
	ExternalID string
	Op         string // begin|insert|commit
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for %q: %v", e.Op, e.ExternalID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsDuplicate(err error) bool {
	var d *DuplicateRecordError
	return errors.As(err, &d)
}
