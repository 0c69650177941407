package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/salescast/timeseries"
)

// Model selects how decomposition components combine.
type Model string

const (
	// Additive decomposes Y = T + S + R.
	Additive Model = "additive"
	// Multiplicative decomposes Y = T * S * R.
	Multiplicative Model = "multiplicative"
)

var (
	// ErrInsufficientData is returned when the series is shorter than two
	// full seasonal cycles.
	ErrInsufficientData = errors.New("insufficient data: need at least two full periods")

	// ErrNonPositive is returned by multiplicative decomposition when the
	// series contains zero or negative values.
	ErrNonPositive = errors.New("multiplicative decomposition requires strictly positive values")
)

// DecompositionResult represents the decomposition of a time series.
type DecompositionResult struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Model    Model
}

// Decompose performs classical seasonal decomposition of a time series,
// estimating the trend with a centered moving average. Trend and residual
// are NaN for the half period at each end where the average is undefined.
func Decompose(series *timeseries.Series, period int, model Model) (*DecompositionResult, error) {
	n := series.Len()
	if period < 2 {
		return nil, errors.Errorf("invalid period %d", period)
	}
	if n < 2*period {
		return nil, errors.Wrapf(ErrInsufficientData, "%d observations for period %d", n, period)
	}
	if model != Multiplicative {
		model = Additive
	}
	if model == Multiplicative && floats.Min(series.Values) <= 0 {
		return nil, ErrNonPositive
	}

	trend := calculateTrend(series.Values, period)

	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			detrended[i] = math.NaN()
		case model == Multiplicative:
			detrended[i] = series.Values[i] / trend[i]
		default:
			detrended[i] = series.Values[i] - trend[i]
		}
	}

	// Average each phase of the cycle, then center the pattern.
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		if !math.IsNaN(v) {
			pattern[i%period] += v
			counts[i%period]++
		}
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}
	mean := floats.Sum(pattern) / float64(period)
	if model == Multiplicative {
		floats.Scale(1/mean, pattern)
	} else {
		floats.AddConst(-mean, pattern)
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = pattern[i%period]
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case model == Multiplicative:
			residual[i] = series.Values[i] / (trend[i] * seasonal[i])
		default:
			residual[i] = series.Values[i] - trend[i] - seasonal[i]
		}
	}

	return &DecompositionResult{
		Original: series,
		Trend:    component(series, trend, "trend"),
		Seasonal: component(series, seasonal, "seasonal"),
		Residual: component(series, residual, "residual"),
		Period:   period,
		Model:    model,
	}, nil
}

func component(series *timeseries.Series, values []float64, name string) *timeseries.Series {
	return &timeseries.Series{
		Values:     values,
		Timestamps: series.Timestamps,
		Name:       name,
	}
}

// calculateTrend calculates trend using centered moving average.
func calculateTrend(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2

	if period%2 == 0 {
		// 2 x period MA: end points get half weight
		for i := half; i < n-half; i++ {
			sum := 0.5*values[i-half] + 0.5*values[i+half]
			sum += floats.Sum(values[i-half+1 : i+half])
			trend[i] = sum / float64(period)
		}
	} else {
		for i := half; i < n-half; i++ {
			trend[i] = floats.Sum(values[i-half:i+half+1]) / float64(period)
		}
	}

	return trend
}
