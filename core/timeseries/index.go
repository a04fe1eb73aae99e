// Package timeseries holds the immutable series produced for each chunk.
package timeseries

import (
	"errors"
	"time"
)

// ErrInvalidIndex is returned for an index with a non-positive spacing or count.
var ErrInvalidIndex = errors.New("invalid time index")

// Index maps point positions on the variant axis to instants.
type Index interface {
	PointCount() int
	TimeAt(point int) time.Time
}

// RegularIndex places Count points Spacing apart starting at Start.
type RegularIndex struct {
	Start   time.Time
	Spacing time.Duration
	Count   int
}

// NewRegularIndex validates and returns a RegularIndex.
func NewRegularIndex(start time.Time, spacing time.Duration, count int) (RegularIndex, error) {
	if spacing <= 0 || count <= 0 {
		return RegularIndex{}, ErrInvalidIndex
	}
	return RegularIndex{Start: start, Spacing: spacing, Count: count}, nil
}

func (i RegularIndex) PointCount() int { return i.Count }

func (i RegularIndex) TimeAt(point int) time.Time {
	return i.Start.Add(time.Duration(point) * i.Spacing)
}
