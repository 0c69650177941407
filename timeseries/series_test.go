package timeseries

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	s := New(values)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, values, s.Values)
	require.Len(t, s.Timestamps, 5)
	assert.Equal(t, Epoch, s.Timestamps[0])
	assert.Equal(t, time.Date(2000, time.May, 1, 0, 0, 0, 0, time.UTC), s.Timestamps[4])
}

func TestNewWithTimestamps(t *testing.T) {
	_, err := NewWithTimestamps(MonthRange(Epoch, 2), []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	s, err := NewWithTimestamps(MonthRange(Epoch, 3), []float64{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, s.HasTimestamps())
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"simple", []float64{1, 2, 3, 4, 5}, 3.0},
		{"single", []float64{5}, 5.0},
		{"negative", []float64{-1, -2, -3}, -2.0},
		{"mixed", []float64{-1, 0, 1}, 0.0},
		{"empty", []float64{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, New(tt.values).Mean(), 1e-10)
		})
	}
}

func TestSumSkipsNaN(t *testing.T) {
	s := New([]float64{1, math.NaN(), 2})
	assert.Equal(t, 3.0, s.Sum())
}

func TestMinMax(t *testing.T) {
	s := New([]float64{5, 2, 8, 1, 9, 3})

	assert.Equal(t, 1.0, s.Min())
	assert.Equal(t, 9.0, s.Max())
	assert.True(t, math.IsNaN(New(nil).Min()))
}

func TestSlice(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5})
	sliced := s.Slice(1, 4)

	assert.Equal(t, []float64{2, 3, 4}, sliced.Values)
	require.Len(t, sliced.Timestamps, 3)
	assert.Equal(t, s.Timestamps[1], sliced.Timestamps[0])

	empty := s.Slice(4, 2)
	assert.Equal(t, 0, empty.Len())
}

func TestCopy(t *testing.T) {
	original := New([]float64{1, 2, 3})
	copied := original.Copy()

	copied.Values[0] = 100
	copied.Timestamps[0] = time.Time{}

	assert.Equal(t, 1.0, original.Values[0])
	assert.Equal(t, Epoch, original.Timestamps[0])
}

func TestIsSorted(t *testing.T) {
	months := MonthRange(Epoch, 3)

	sorted, err := NewWithTimestamps(months, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, sorted.IsSorted())

	swapped := []time.Time{months[1], months[0], months[2]}
	unsorted, err := NewWithTimestamps(swapped, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, unsorted.IsSorted())

	dup := []time.Time{months[0], months[0], months[1]}
	repeated, err := NewWithTimestamps(dup, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, repeated.IsSorted())

	assert.True(t, (&Series{Values: []float64{3, 1}}).IsSorted())
}

func TestSortByTime(t *testing.T) {
	months := MonthRange(Epoch, 3)
	s, err := NewWithTimestamps([]time.Time{months[2], months[0], months[1]}, []float64{30, 10, 20})
	require.NoError(t, err)

	sorted, err := s.SortByTime()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, sorted.Values)
	assert.Equal(t, months, sorted.Timestamps)
	assert.Equal(t, []float64{30, 10, 20}, s.Values)
}

func TestInterpolate(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		values   []float64
		expected []float64
	}{
		{"interior", []float64{1, nan, nan, 4}, []float64{1, 2, 3, 4}},
		{"trailing", []float64{1, 2, nan}, []float64{1, 2, 2}},
		{"none", []float64{1, 2, 3}, []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.expected, Interpolate(tt.values), 1e-12)
		})
	}

	t.Run("leading stays missing", func(t *testing.T) {
		out := Interpolate([]float64{nan, 2, nan, 4})
		assert.True(t, math.IsNaN(out[0]))
		assert.Equal(t, []float64{2, 3, 4}, out[1:])
	})
}

func TestWriteCSV(t *testing.T) {
	s := New([]float64{1.5, math.NaN(), 3})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))

	expected := "ds,y\n2000-01-01,1.5\n2000-02-01,\n2000-03-01,3\n"
	assert.Equal(t, expected, buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, &Series{Values: []float64{7}}))
	assert.Equal(t, "index,y\n1,7\n", buf.String())
}
