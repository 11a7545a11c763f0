package core

// error_messages.go translates internal errors into user-facing messages
// with stable codes for support reference.
//
// Codes are grouped by category:
//
//	IMP001-IMP099  import flow (wizard stages, sessions, commit)
//	FILE001-FILE099 file handling and extraction
//	DB001-DB099    storage failures during commit
//
// Typed pipeline errors are matched first via errors.Is/As; storage errors
// fall back to substring patterns on the driver message, since pgx wraps
// server errors as opaque strings.

import (
	"errors"
	"strings"
)

// UserMessage is a user-friendly rendering of an internal error.
type UserMessage struct {
	Code    string // Stable reference code for support
	Message string // What went wrong, in user terms
	Action  string // What the user can do about it
}

// errorPattern maps a substring of a technical error to a UserMessage.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var storagePatterns = []errorPattern{
	{"duplicate key", UserMessage{
		Code:    "DB001",
		Message: "A record with this identifier already exists",
		Action:  "Review the skip details and retry",
	}},
	{"connection refused", UserMessage{
		Code:    "DB004",
		Message: "Unable to reach the database",
		Action:  "Please try again in a few moments",
	}},
	{"connection reset", UserMessage{
		Code:    "DB005",
		Message: "The database connection was interrupted",
		Action:  "Please retry the import",
	}},
	{"timeout", UserMessage{
		Code:    "DB006",
		Message: "The operation timed out",
		Action:  "Try a smaller file or retry later",
	}},
	{"deadlock", UserMessage{
		Code:    "DB007",
		Message: "The database was busy with conflicting operations",
		Action:  "Please retry the import",
	}},
}

var defaultMessage = UserMessage{
	Code:    "ERR000",
	Message: "An unexpected error occurred",
	Action:  "Please try again, and contact support with this code if it persists",
}

// MapError converts any pipeline error into a UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var mappingErr *MappingError
	var extractErr *ExtractionError
	var commitErr *CommitError
	var validationErr *ValidationFailure

	switch {
	case errors.Is(err, ErrNoRows):
		return UserMessage{
			Code:    "FILE001",
			Message: "No data found in the spreadsheet",
			Action:  "Check that the file has a header row and at least one data row",
		}
	case errors.Is(err, ErrEmptyFile):
		return UserMessage{
			Code:    "FILE002",
			Message: "The uploaded file is empty",
			Action:  "Select a file with data and upload again",
		}
	case errors.Is(err, ErrUnsupportedFormat):
		return UserMessage{
			Code:    "FILE003",
			Message: "Unsupported file format",
			Action:  "Upload a .xlsx, .xlsm, .csv, .tsv, or .txt file",
		}
	case errors.As(err, &extractErr):
		return UserMessage{
			Code:    "FILE004",
			Message: "Failed to parse the file",
			Action:  "Ensure the file is a valid spreadsheet or delimited text export",
		}
	case errors.As(err, &mappingErr):
		return UserMessage{
			Code:    "IMP001",
			Message: mappingErr.Error(),
			Action:  "Bind the listed columns before applying the mapping",
		}
	case errors.Is(err, ErrInvalidTransition):
		return UserMessage{
			Code:    "IMP002",
			Message: "That action is not available at this step",
			Action:  "Refresh the wizard state and continue from the current step",
		}
	case errors.Is(err, ErrNoValidRows):
		return UserMessage{
			Code:    "IMP003",
			Message: "Every row has validation errors",
			Action:  "Fix at least one row before importing",
		}
	case errors.Is(err, ErrRowNotFound):
		return UserMessage{
			Code:    "IMP004",
			Message: "That row is no longer in the working set",
			Action:  "Refresh the validation table",
		}
	case errors.Is(err, ErrUnknownField):
		return UserMessage{
			Code:    "IMP005",
			Message: "Unknown column field",
			Action:  "Use one of the semantic fields listed by the mapping screen",
		}
	case errors.Is(err, ErrSessionNotFound):
		return UserMessage{
			Code:    "IMP006",
			Message: "Import session not found or expired",
			Action:  "Start a new import session",
		}
	case errors.Is(err, ErrTooManySessions):
		return UserMessage{
			Code:    "IMP007",
			Message: "Too many open import sessions",
			Action:  "Close a finished session or try again shortly",
		}
	case errors.As(err, &validationErr):
		return UserMessage{
			Code:    "IMP008",
			Message: "Entry failed validation: " + validationErr.Error(),
			Action:  "Correct the listed fields and submit again",
		}
	case errors.As(err, &commitErr):
		return mapStorageError(commitErr.Err)
	}

	return defaultMessage
}

// mapStorageError matches driver error text against known patterns.
func mapStorageError(err error) UserMessage {
	errStr := strings.ToLower(err.Error())
	for _, ep := range storagePatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return UserMessage{
		Code:    "DB000",
		Message: "The import could not be saved",
		Action:  "Your rows were kept; fix the issue and retry the import",
	}
}
