package result

import (
	"fmt"
	"maps"
	"sort"

	"github.com/kilianp07/gridsim/core/timeseries"
)

const (
	// ErrorCodeName is the channel receiving the solver status, and the
	// sentinel for variants whose file is missing or unreadable.
	ErrorCodeName = "ERROR_CODE"
	// ErrorCodeValue is the sentinel status.
	ErrorCodeValue = 1.0
)

// column holds one channel. set[i] is false while position i has no data,
// which keeps "no value" apart from a computed NaN or empty string.
type column[T comparable] struct {
	tags   map[string]string
	values []T
	set    []bool
}

func newColumn[T comparable](length int, tags map[string]string) *column[T] {
	return &column[T]{tags: maps.Clone(tags), values: make([]T, length), set: make([]bool, length)}
}

func (c *column[T]) put(pos int, v T) {
	c.values[pos] = v
	c.set[pos] = true
}

func (c *column[T]) populated() bool {
	for _, s := range c.set {
		if s {
			return true
		}
	}
	return false
}

// ResultSet accumulates the decoded values of every variant of one chunk.
// Position i of every column belongs to variant Offset()+i. A ResultSet is
// owned by a single task and is not safe for concurrent use.
type ResultSet struct {
	offset  int
	length  int
	numbers map[string]*column[float64]
	texts   map[string]*column[string]
}

// NewResultSet allocates a result set for variants [offset, offset+length).
func NewResultSet(offset, length int) *ResultSet {
	return &ResultSet{
		offset:  offset,
		length:  length,
		numbers: make(map[string]*column[float64]),
		texts:   make(map[string]*column[string]),
	}
}

func (rs *ResultSet) Offset() int { return rs.offset }
func (rs *ResultSet) Len() int    { return rs.length }

func (rs *ResultSet) position(variant int) (int, error) {
	pos := variant - rs.offset
	if pos < 0 || pos >= rs.length {
		return 0, fmt.Errorf("%w: variant %d not in [%d, %d)", ErrVariantOutOfChunk, variant, rs.offset, rs.offset+rs.length)
	}
	return pos, nil
}

// SetNumber writes v for variant into the numeric channel name. The channel
// is created with tags on first write; later tags are ignored.
func (rs *ResultSet) SetNumber(name string, tags map[string]string, variant int, v float64) error {
	pos, err := rs.position(variant)
	if err != nil {
		return err
	}
	c, ok := rs.numbers[name]
	if !ok {
		c = newColumn[float64](rs.length, tags)
		rs.numbers[name] = c
	}
	c.put(pos, v)
	return nil
}

// SetString writes v for variant into the string channel name.
func (rs *ResultSet) SetString(name string, tags map[string]string, variant int, v string) error {
	pos, err := rs.position(variant)
	if err != nil {
		return err
	}
	c, ok := rs.texts[name]
	if !ok {
		c = newColumn[string](rs.length, tags)
		rs.texts[name] = c
	}
	c.put(pos, v)
	return nil
}

// RecordError writes the ERROR_CODE sentinel for variant.
func (rs *ResultSet) RecordError(variant int) error {
	return rs.SetNumber(ErrorCodeName, nil, variant, ErrorCodeValue)
}

// Number returns the value of channel name for variant.
func (rs *ResultSet) Number(name string, variant int) (float64, bool) {
	c, ok := rs.numbers[name]
	if !ok {
		return 0, false
	}
	pos, err := rs.position(variant)
	if err != nil || !c.set[pos] {
		return 0, false
	}
	return c.values[pos], true
}

// Text returns the value of string channel name for variant.
func (rs *ResultSet) Text(name string, variant int) (string, bool) {
	c, ok := rs.texts[name]
	if !ok {
		return "", false
	}
	pos, err := rs.position(variant)
	if err != nil || !c.set[pos] {
		return "", false
	}
	return c.values[pos], true
}

// Tags returns the tags a channel was created with.
func (rs *ResultSet) Tags(name string) (map[string]string, bool) {
	if c, ok := rs.numbers[name]; ok {
		return maps.Clone(c.tags), true
	}
	if c, ok := rs.texts[name]; ok {
		return maps.Clone(c.tags), true
	}
	return nil, false
}

// NumberNames returns the numeric channel names in lexical order.
func (rs *ResultSet) NumberNames() []string { return sortedKeys(rs.numbers) }

// StringNames returns the string channel names in lexical order.
func (rs *ResultSet) StringNames() []string { return sortedKeys(rs.texts) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Finalize converts every populated channel into an immutable series anchored
// at the chunk offset. Numeric series come first, each group sorted by name.
func (rs *ResultSet) Finalize(index timeseries.Index) []timeseries.Series {
	out := make([]timeseries.Series, 0, len(rs.numbers)+len(rs.texts))
	for _, name := range rs.NumberNames() {
		c := rs.numbers[name]
		if !c.populated() {
			continue
		}
		chunk := timeseries.NewDenseChunk(rs.offset, c.values, c.set).TryCompress()
		out = append(out, timeseries.NewDoubleSeries(name, c.tags, index, chunk))
	}
	for _, name := range rs.StringNames() {
		c := rs.texts[name]
		if !c.populated() {
			continue
		}
		chunk := timeseries.NewDenseChunk(rs.offset, c.values, c.set).TryCompress()
		out = append(out, timeseries.NewStringSeries(name, c.tags, index, chunk))
	}
	return out
}
