package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when actual and predicted values differ in
// length or are empty.
var ErrLengthMismatch = errors.New("actual and predicted must be non-empty and of equal length")

func residuals(actual, predicted []float64) ([]float64, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d actual, %d predicted", len(actual), len(predicted))
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	return diff, nil
}

// MSE returns the mean squared error of predicted against actual.
func MSE(actual, predicted []float64) (float64, error) {
	diff, err := residuals(actual, predicted)
	if err != nil {
		return math.NaN(), err
	}
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

// RMSE returns the root mean squared error.
func RMSE(actual, predicted []float64) (float64, error) {
	mse, err := MSE(actual, predicted)
	if err != nil {
		return math.NaN(), err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error.
func MAE(actual, predicted []float64) (float64, error) {
	diff, err := residuals(actual, predicted)
	if err != nil {
		return math.NaN(), err
	}
	return floats.Norm(diff, 1) / float64(len(diff)), nil
}

// MAPE returns the mean absolute percentage error over the points where the
// actual value is non-zero. NaN if every actual value is zero.
func MAPE(actual, predicted []float64) (float64, error) {
	diff, err := residuals(actual, predicted)
	if err != nil {
		return math.NaN(), err
	}
	sum, count := 0.0, 0
	for i, d := range diff {
		if actual[i] != 0 {
			sum += math.Abs(d / actual[i])
			count++
		}
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return 100 * sum / float64(count), nil
}
