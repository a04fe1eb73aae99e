package variant

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned for negative or inverted ranges.
	ErrInvalidRange = errors.New("invalid variant range")
	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
	// ErrOverlappingRanges is returned when two input ranges share a variant.
	ErrOverlappingRanges = errors.New("overlapping variant ranges")
	// ErrChunkOutOfRange is returned by ChunkRange for unknown indexes.
	ErrChunkOutOfRange = errors.New("chunk index out of range")
)

// Range is an inclusive interval of variant numbers.
type Range struct {
	First int `json:"first" yaml:"first"`
	Last  int `json:"last" yaml:"last"`
}

// EmptyRange is the marker returned for the "no chunk" index -1.
var EmptyRange = Range{First: -1, Last: -1}

// RangeError describes why a range was rejected.
type RangeError struct {
	Range  Range
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid variant range %s: %s", e.Range, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// Validate checks that the range is well formed.
func (r Range) Validate() error {
	if r.First < 0 {
		return &RangeError{Range: r, Reason: "first variant must not be negative"}
	}
	if r.Last < r.First {
		return &RangeError{Range: r, Reason: "last variant is lower than first variant"}
	}
	return nil
}

// IsEmpty reports whether r is the empty marker or otherwise holds no variant.
func (r Range) IsEmpty() bool { return r.First < 0 || r.Last < r.First }

// Len returns the number of variants in r.
func (r Range) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Last - r.First + 1
}

// Contains reports whether v lies in r.
func (r Range) Contains(v int) bool { return !r.IsEmpty() && v >= r.First && v <= r.Last }

// Overlaps reports whether r and o share at least one variant.
func (r Range) Overlaps(o Range) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.First <= o.Last && o.First <= r.Last
}

func (r Range) String() string { return fmt.Sprintf("[%d, %d]", r.First, r.Last) }
