package core

// errors.go defines the error taxonomy of the import pipeline.
//
// Extraction and mapping errors block forward progress and are surfaced to
// the user; row validation failures are recovered locally by skipping the
// row; commit errors are surfaced, retryable, and never auto-retried.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRows is returned when an uploaded file yields a header but no
	// data rows. The wizard stays in the upload stage.
	ErrNoRows = errors.New("no data found in the spreadsheet")

	// ErrEmptyFile is returned for a file with no content at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnsupportedFormat is returned for file extensions the extractor
	// does not handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidTransition is returned when an operation is attempted in
	// a wizard stage that does not allow it.
	ErrInvalidTransition = errors.New("operation not allowed in current stage")

	// ErrNoValidRows is returned when a commit is requested while every
	// row in the working set is invalid.
	ErrNoValidRows = errors.New("no valid rows to import")

	// ErrRowNotFound is returned when an edit or removal targets a row
	// number not present in the working set.
	ErrRowNotFound = errors.New("row not found")

	// ErrUnknownField is returned when a mapping or edit names a field
	// key outside the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrSessionNotFound is returned when a session ID does not resolve
	// to an open wizard session.
	ErrSessionNotFound = errors.New("import session not found")
)

// MappingError reports required semantic fields left without a bound
// header when the mapping was applied.
type MappingError struct {
	MissingLabels []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("please map required columns: %s", strings.Join(e.MissingLabels, ", "))
}

// CommitError wraps a storage or transport failure during import. The
// working set survives it, so the user can retry the commit unchanged.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("import failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// ExtractionError wraps a file-level parse failure reported in the
// upload stage.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to parse file: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
