package timeseries

import "math"

// Point is one position of a chunk. Valid is false when no value was
// recorded for the variant.
type Point[T any] struct {
	Value T
	Valid bool
}

type run[T comparable] struct {
	value T
	valid bool
	count int
}

// Chunk stores the values of one series for the variants
// [Offset, Offset+Len). It is either dense or run-length encoded; both forms
// decode to the same points.
type Chunk[T comparable] struct {
	offset int
	length int
	values []T
	valid  []bool
	runs   []run[T]
}

// NewDenseChunk copies values and their validity flags into a dense chunk.
// A nil valid slice marks every value as valid.
func NewDenseChunk[T comparable](offset int, values []T, valid []bool) *Chunk[T] {
	c := &Chunk[T]{
		offset: offset,
		length: len(values),
		values: append([]T(nil), values...),
		valid:  make([]bool, len(values)),
	}
	for i := range c.valid {
		c.valid[i] = valid == nil || valid[i]
		if !c.valid[i] {
			var zero T
			c.values[i] = zero
		}
	}
	return c
}

func (c *Chunk[T]) Offset() int { return c.offset }

func (c *Chunk[T]) Len() int { return c.length }

// Compressed reports whether the chunk is run-length encoded.
func (c *Chunk[T]) Compressed() bool { return c.runs != nil }

// Points decodes the chunk.
func (c *Chunk[T]) Points() []Point[T] {
	out := make([]Point[T], 0, c.length)
	if c.runs == nil {
		for i, v := range c.values {
			out = append(out, Point[T]{Value: v, Valid: c.valid[i]})
		}
		return out
	}
	for _, r := range c.runs {
		for k := 0; k < r.count; k++ {
			out = append(out, Point[T]{Value: r.value, Valid: r.valid})
		}
	}
	return out
}

// At returns the value stored for variant v.
func (c *Chunk[T]) At(v int) (T, bool) {
	var zero T
	i := v - c.offset
	if i < 0 || i >= c.length {
		return zero, false
	}
	if c.runs == nil {
		return c.values[i], c.valid[i]
	}
	for _, r := range c.runs {
		if i < r.count {
			return r.value, r.valid
		}
		i -= r.count
	}
	return zero, false
}

// EstimatedSize approximates the in-memory footprint of the stored form.
func (c *Chunk[T]) EstimatedSize() int {
	if c.runs == nil {
		n := 0
		for _, v := range c.values {
			n += sizeOf(v) + 1
		}
		return n
	}
	n := 0
	for _, r := range c.runs {
		n += sizeOf(r.value) + 1 + 4
	}
	return n
}

// TryCompress returns a run-length encoded copy when it is smaller than the
// current form, otherwise c itself.
func (c *Chunk[T]) TryCompress() *Chunk[T] {
	if c.runs != nil || c.length == 0 {
		return c
	}
	var runs []run[T]
	for i, v := range c.values {
		if n := len(runs); n > 0 && runs[n-1].valid == c.valid[i] && (!c.valid[i] || same(runs[n-1].value, v)) {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run[T]{value: v, valid: c.valid[i], count: 1})
	}
	rc := &Chunk[T]{offset: c.offset, length: c.length, runs: runs}
	if rc.EstimatedSize() < c.EstimatedSize() {
		return rc
	}
	return c
}

// same treats two NaN floats as equal so runs of NaN collapse.
func same[T comparable](a, b T) bool {
	if a == b {
		return true
	}
	fa, ok := any(a).(float64)
	fb, _ := any(b).(float64)
	return ok && math.IsNaN(fa) && math.IsNaN(fb)
}

func sizeOf(v any) int {
	if s, ok := v.(string); ok {
		return 16 + len(s)
	}
	return 8
}
