package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailed means the generation backend returned unparseable
	// output even after the corrective retry. The run produced no records;
	// callers must not treat it as an empty collection.
	ErrExtractionFailed = errors.New("extraction output unparseable after retry")

	// ErrEmptyMergeInput is returned when merge is given zero collections.
	ErrEmptyMergeInput = errors.New("no run collections to merge")

	// ErrEmptyQuery is returned for an empty or whitespace-only query; its
	// embedding would not be a meaningful similarity anchor.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrStoreNotReady distinguishes a misconfigured store from one that is
	// ready but holds no data.
	ErrStoreNotReady = errors.New("vector store not initialized")
)

// SchemaError reports a record candidate violating the extraction contract.
// Invalid candidates are dropped from the run, not fatal to it.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: field %q %s", e.Field, e.Reason)
}

// BackendError wraps a transport or auth failure from an external model
// backend. No retry is attempted where it is raised; retry policy belongs to
// the caller.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
