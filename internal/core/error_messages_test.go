package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"no rows", ErrNoRows, "FILE001"},
		{"empty file", ErrEmptyFile, "FILE002"},
		{"unsupported format", ErrUnsupportedFormat, "FILE003"},
		{"wrapped unsupported format", fmt.Errorf("%w: .pdf", ErrUnsupportedFormat), "FILE003"},
		{"extraction failure", &ExtractionError{Err: errors.New("bad zip")}, "FILE004"},
		{"mapping guard", &MappingError{MissingLabels: []string{"Revenue (INR)"}}, "IMP001"},
		{"invalid transition", ErrInvalidTransition, "IMP002"},
		{"no valid rows", ErrNoValidRows, "IMP003"},
		{"row not found", ErrRowNotFound, "IMP004"},
		{"unknown field", ErrUnknownField, "IMP005"},
		{"session not found", ErrSessionNotFound, "IMP006"},
		{"too many sessions", ErrTooManySessions, "IMP007"},
		{"entry validation", &ValidationFailure{Reasons: []string{ReasonZeroRevenue}}, "IMP008"},
		{"unknown error", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if got.Message == "" {
				t.Errorf("MapError(%v).Message is empty", tt.err)
			}
		})
	}
}

func TestMapError_StoragePatterns(t *testing.T) {
	tests := []struct {
		name     string
		cause    string
		wantCode string
	}{
		{"duplicate key", `duplicate key value violates unique constraint "line_items_group_id_seq_no_key"`, "DB001"},
		{"connection refused", "dial tcp 127.0.0.1:5432: connection refused", "DB004"},
		{"connection reset", "read tcp: connection reset by peer", "DB005"},
		{"timeout", "pool timeout acquiring connection", "DB006"},
		{"deadlock", "deadlock detected", "DB007"},
		{"unmatched", "some novel failure", "DB000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &CommitError{Err: errors.New(tt.cause)}
			got := MapError(err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%q).Code = %q, want %q", tt.cause, got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_MappingErrorNamesLabels(t *testing.T) {
	err := &MappingError{MissingLabels: []string{"Shipper / Client Name", "Revenue (INR)"}}
	got := MapError(err)
	for _, label := range err.MissingLabels {
		if !strings.Contains(got.Message, label) {
			t.Errorf("Message %q missing label %q", got.Message, label)
		}
	}
}

func TestMapError_Nil(t *testing.T) {
	if got := MapError(nil); got.Code != "" {
		t.Errorf("MapError(nil) = %+v, want zero value", got)
	}
}
