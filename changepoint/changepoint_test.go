package changepoint

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salescast/timeseries"
)

var start = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

func monthly(n int) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 2*float64(i) + 15*math.Sin(2*math.Pi*float64(i)/12)
	}
	s, _ := timeseries.NewWithTimestamps(timeseries.MonthRange(start, n), values)
	return s
}

func TestFitInSample(t *testing.T) {
	series := monthly(36)
	model := New(DefaultOptions())
	require.NoError(t, model.Fit(series))

	assert.True(t, model.Yearly)
	assert.Len(t, model.ChangepointDates, 25)
	for _, d := range model.ChangepointDates {
		assert.True(t, d.After(start))
		assert.False(t, d.After(series.Timestamps[27]))
	}

	pred, err := model.Predict(series.Timestamps)
	require.NoError(t, err)
	require.Equal(t, 36, pred.Len())

	absErr := 0.0
	for i, v := range pred.Yhat {
		absErr += math.Abs(v - series.Values[i])
		assert.LessOrEqual(t, pred.Lower[i], v)
		assert.GreaterOrEqual(t, pred.Upper[i], v)
	}
	assert.Less(t, absErr/36, 5.0)
}

func TestPredictBounds(t *testing.T) {
	series := monthly(36)
	model := New(DefaultOptions())
	require.NoError(t, model.Fit(series))

	dates := model.MakeFutureDates(4, true)
	require.Len(t, dates, 40)
	assert.Equal(t, timeseries.AddMonths(series.Last(), 4), dates[39])

	pred, err := model.Predict(dates)
	require.NoError(t, err)

	z := distuv.UnitNormal.Quantile(0.9)
	half := z * model.Sigma
	for i := 0; i < 36; i++ {
		assert.InDelta(t, half, pred.Upper[i]-pred.Yhat[i], 1e-9)
		assert.InDelta(t, half, pred.Yhat[i]-pred.Lower[i], 1e-9)
	}
	for h := 1; h <= 4; h++ {
		assert.InDelta(t, half*math.Sqrt(float64(h)), pred.Upper[35+h]-pred.Yhat[35+h], 1e-9)
	}
}

func TestChangepointPlacement(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{36, 25},
		{10, 7},
		{3, 1},
		{2, 0},
	}

	for _, tt := range tests {
		model := New(DefaultOptions())
		require.NoError(t, model.Fit(monthly(tt.n)))
		assert.Len(t, model.ChangepointDates, tt.expected, "n=%d", tt.n)
	}
}

func TestYearlyAuto(t *testing.T) {
	model := New(DefaultOptions())
	require.NoError(t, model.Fit(monthly(12)))
	assert.False(t, model.Yearly)

	opts := DefaultOptions()
	opts.Yearly = SeasonalityOff
	model = New(opts)
	require.NoError(t, model.Fit(monthly(36)))
	assert.False(t, model.Yearly)
}

func TestFitSkipsMissing(t *testing.T) {
	series := monthly(24)
	series.Values[3] = math.NaN()

	model := New(DefaultOptions())
	require.NoError(t, model.Fit(series))

	pred, err := model.Predict(series.Timestamps)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred.Yhat[3]))
}

func TestFitErrors(t *testing.T) {
	single := monthly(1)
	assert.ErrorIs(t, New(DefaultOptions()).Fit(single), ErrInsufficientData)

	allMissing := monthly(5)
	for i := range allMissing.Values[1:] {
		allMissing.Values[i+1] = math.NaN()
	}
	assert.ErrorIs(t, New(DefaultOptions()).Fit(allMissing), ErrInsufficientData)

	unsorted := monthly(5)
	unsorted.Timestamps[0], unsorted.Timestamps[1] = unsorted.Timestamps[1], unsorted.Timestamps[0]
	assert.ErrorIs(t, New(DefaultOptions()).Fit(unsorted), timeseries.ErrUnsorted)

	_, err := New(DefaultOptions()).Predict(single.Timestamps)
	assert.ErrorIs(t, err, ErrNotFitted)
}
