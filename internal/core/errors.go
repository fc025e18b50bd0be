package core

import (
	"errors"
	"fmt"
)

// Fatal errors. Everything else that can go wrong during a pass is reported as a
// RowOutcome or a FileResult and never leaves the pass as an error.
var (
	// ErrConfigParse is returned when the mapping document is unreadable or malformed.
	ErrConfigParse = errors.New("mapping document could not be parsed")

	// ErrFileAccess is returned when an output directory cannot be walked.
	ErrFileAccess = errors.New("cannot access tool output")

	// ErrCancelled is returned by callers that treat a cancelled pass as a failure.
	ErrCancelled = errors.New("ingestion pass cancelled")

	// ErrTooManyPasses is returned when no ingest slot frees up in time.
	ErrTooManyPasses = errors.New("too many ingestion passes pending, try again later")
)

// Artifact store errors. Store adapters wrap these so callers can use errors.Is.
var (
	ErrNotFound = errors.New("type not found")
	ErrCreate   = errors.New("record could not be created")
	ErrPost     = errors.New("batch could not be posted")
)

// TypeNotFoundError carries the unresolved type name.
type TypeNotFoundError struct {
	Kind string // "record" or "attribute"
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("%s type %q not found", e.Kind, e.Name)
}

func (e *TypeNotFoundError) Unwrap() error { return ErrNotFound }

// RejectReason explains why a row produced no record.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectEmptyIndex
	RejectEmptyRow
	RejectWidthMismatch
	RejectValueUnobtainable
	RejectValueUnresolvable
	RejectRequiredMissing
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectEmptyIndex:
		return "empty column index"
	case RejectEmptyRow:
		return "empty row"
	case RejectWidthMismatch:
		return "column count mismatch"
	case RejectValueUnobtainable:
		return "value unobtainable"
	case RejectValueUnresolvable:
		return "value unresolvable"
	case RejectRequiredMissing:
		return "required column missing"
	default:
		return fmt.Sprintf("RejectReason(%d)", int(r))
	}
}
