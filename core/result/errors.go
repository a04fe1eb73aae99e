package result

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOutage is returned when a record references an outage id
	// that no earlier roster line of the same file declared.
	ErrUnknownOutage = errors.New("unknown outage")
	// ErrMalformedRecord is returned for short lines and unparsable fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrVariantOutOfChunk is returned when writing outside the result set.
	ErrVariantOutOfChunk = errors.New("variant outside chunk")
)

// UnknownOutageError reports the unresolved id and where it was found.
type UnknownOutageError struct {
	ID   int
	Line int
	Code string
}

func (e *UnknownOutageError) Error() string {
	return fmt.Sprintf("line %d (%s): unknown outage %d", e.Line, e.Code, e.ID)
}

func (e *UnknownOutageError) Unwrap() error { return ErrUnknownOutage }

// MalformedRecordError reports a record that could not be decoded.
type MalformedRecordError struct {
	Line   int
	Code   string
	Field  int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("line %d (%s)", e.Line, e.Code)
	if e.Field >= 0 {
		msg += fmt.Sprintf(" field %d", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRecord, e.Err}
	}
	return []error{ErrMalformedRecord}
}
