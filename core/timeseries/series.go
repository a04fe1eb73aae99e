package timeseries

import (
	"fmt"
	"maps"
	"math"
)

// DataType identifies the value type of a series.
type DataType int

const (
	Double DataType = iota
	String
)

func (t DataType) String() string {
	switch t {
	case Double:
		return "double"
	case String:
		return "string"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// Metadata describes a series independently of its values.
type Metadata struct {
	Name  string
	Type  DataType
	Tags  map[string]string
	Index Index
}

// Series is implemented by DoubleSeries and StringSeries.
type Series interface {
	Metadata() Metadata
	Offset() int
	Len() int
	Compressed() bool
}

// DoubleSeries is a numeric series anchored at its chunk offset.
type DoubleSeries struct {
	meta  Metadata
	chunk *Chunk[float64]
}

// NewDoubleSeries builds an immutable numeric series. Tags are copied.
func NewDoubleSeries(name string, tags map[string]string, index Index, chunk *Chunk[float64]) *DoubleSeries {
	return &DoubleSeries{
		meta:  Metadata{Name: name, Type: Double, Tags: maps.Clone(tags), Index: index},
		chunk: chunk,
	}
}

func (s *DoubleSeries) Metadata() Metadata { return s.meta }
func (s *DoubleSeries) Offset() int        { return s.chunk.Offset() }
func (s *DoubleSeries) Len() int           { return s.chunk.Len() }
func (s *DoubleSeries) Compressed() bool   { return s.chunk.Compressed() }

// Points returns every position with its validity flag.
func (s *DoubleSeries) Points() []Point[float64] { return s.chunk.Points() }

// At returns the value for variant v.
func (s *DoubleSeries) At(v int) (float64, bool) { return s.chunk.At(v) }

// Values returns the positions as plain floats, NaN standing for no data.
func (s *DoubleSeries) Values() []float64 {
	pts := s.chunk.Points()
	out := make([]float64, len(pts))
	for i, p := range pts {
		if p.Valid {
			out[i] = p.Value
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// StringSeries is a string series anchored at its chunk offset.
type StringSeries struct {
	meta  Metadata
	chunk *Chunk[string]
}

// NewStringSeries builds an immutable string series. Tags are copied.
func NewStringSeries(name string, tags map[string]string, index Index, chunk *Chunk[string]) *StringSeries {
	return &StringSeries{
		meta:  Metadata{Name: name, Type: String, Tags: maps.Clone(tags), Index: index},
		chunk: chunk,
	}
}

func (s *StringSeries) Metadata() Metadata { return s.meta }
func (s *StringSeries) Offset() int        { return s.chunk.Offset() }
func (s *StringSeries) Len() int           { return s.chunk.Len() }
func (s *StringSeries) Compressed() bool   { return s.chunk.Compressed() }

func (s *StringSeries) Points() []Point[string] { return s.chunk.Points() }

func (s *StringSeries) At(v int) (string, bool) { return s.chunk.At(v) }

// Values returns the positions as strings, empty standing for no data.
func (s *StringSeries) Values() []string {
	pts := s.chunk.Points()
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}
