package forecast

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sartorproj/salescast/holtwinters"
	"github.com/sartorproj/salescast/timeseries"
)

// Method names.
const (
	MethodSmoothing   = "holt-winters"
	MethodChangepoint = "changepoint"
)

// Point is one forecast date.
type Point struct {
	Date  time.Time
	Value float64
	Lower float64
	Upper float64
}

// Output is a dated forecast. Lower and Upper are nil for methods without
// uncertainty intervals.
type Output struct {
	Method string
	Dates  []time.Time
	Values []float64
	Lower  []float64
	Upper  []float64
}

// Len returns the number of forecast dates.
func (o *Output) Len() int {
	return len(o.Dates)
}

// HasBounds reports whether the output carries uncertainty intervals.
func (o *Output) HasBounds() bool {
	return len(o.Lower) == len(o.Values) && len(o.Upper) == len(o.Values) && len(o.Values) > 0
}

// Series returns the point forecasts as a series.
func (o *Output) Series() *timeseries.Series {
	s := &timeseries.Series{
		Timestamps: append([]time.Time(nil), o.Dates...),
		Values:     append([]float64(nil), o.Values...),
		Name:       o.Method,
	}
	return s
}

// Points returns the forecast date by date.
func (o *Output) Points() []Point {
	out := make([]Point, o.Len())
	bounds := o.HasBounds()
	for i := range out {
		out[i] = Point{Date: o.Dates[i], Value: o.Values[i]}
		if bounds {
			out[i].Lower, out[i].Upper = o.Lower[i], o.Upper[i]
		}
	}
	return out
}

// Smoothing forecasts periods months past the training data of a fitted
// Holt-Winters model.
func Smoothing(model *holtwinters.Model, periods int) (*Output, error) {
	if model == nil {
		return nil, errors.Wrap(holtwinters.ErrNotFitted, "nil model")
	}
	series, err := model.ForecastSeries(periods)
	if err != nil {
		return nil, err
	}
	return &Output{
		Method: MethodSmoothing,
		Dates:  series.Timestamps,
		Values: series.Values,
	}, nil
}
