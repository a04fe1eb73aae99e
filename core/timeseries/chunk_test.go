package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoubleChunkRoundTrip(t *testing.T) {
	values := []float64{1, 1, 1, 1, 0, 0, 2.5, math.NaN(), math.NaN(), 3}
	valid := []bool{true, true, true, true, false, false, true, true, true, true}
	dense := NewDenseChunk(5, values, valid)
	c := dense.TryCompress()
	require.True(t, c.Compressed(), "expected runs to be smaller than the dense form")
	assert.LessOrEqual(t, c.EstimatedSize(), dense.EstimatedSize())

	pts := c.Points()
	require.Len(t, pts, len(values))
	for i, p := range pts {
		assert.Equal(t, valid[i], p.Valid, "validity at %d", i)
		if !valid[i] {
			continue
		}
		if math.IsNaN(values[i]) {
			assert.True(t, math.IsNaN(p.Value), "computed NaN at %d must survive", i)
		} else {
			assert.Equal(t, values[i], p.Value, "value at %d", i)
		}
	}
	v, ok := c.At(11)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
	_, ok = c.At(9)
	assert.False(t, ok, "no data position")
	_, ok = c.At(4)
	assert.False(t, ok, "before offset")
}

func TestStringChunkRoundTrip(t *testing.T) {
	values := []string{"a", "a", "", "b", "b", "b"}
	valid := []bool{true, true, false, true, true, true}
	c := NewDenseChunk(0, values, valid).TryCompress()
	got := c.Points()
	for i := range values {
		assert.Equal(t, Point[string]{Value: values[i], Valid: valid[i]}, got[i])
	}
}

func TestTryCompressKeepsDenseWhenLarger(t *testing.T) {
	c := NewDenseChunk(0, []float64{1, 2, 3, 4}, nil)
	assert.Same(t, c, c.TryCompress())
	assert.False(t, c.Compressed())
}

func TestDoubleSeriesValues(t *testing.T) {
	idx, err := NewRegularIndex(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour, 24)
	require.NoError(t, err)
	tags := map[string]string{"branch": "L1"}
	s := NewDoubleSeries("FLOW_L1", tags, idx, NewDenseChunk(2, []float64{4, 0}, []bool{true, false}).TryCompress())
	tags["branch"] = "mutated"
	assert.Equal(t, "L1", s.Metadata().Tags["branch"])
	assert.Equal(t, Double, s.Metadata().Type)
	vals := s.Values()
	assert.Equal(t, 4.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 2, s.Offset())
	assert.Equal(t, time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC), idx.TimeAt(3))

	_, err = NewRegularIndex(time.Time{}, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}
