// Package changepoint implements a changepoint regression forecaster.
//
// The model is y(t) = g(t) + s(t) where g is a piecewise-linear trend whose
// slope may change at a fixed set of potential changepoints and s is a
// Fourier series with a yearly period. Coefficients are estimated by
// regularised least squares: changepoint slopes are shrunk strongly so
// that the trend only bends where the data demand it.
//
// # Basic Usage
//
//	model := changepoint.New(changepoint.DefaultOptions())
//	if err := model.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//
//	// In-sample fit
//	fit, _ := model.Predict(series.Timestamps)
//
//	// History plus twelve future months
//	forecast, _ := model.Predict(model.MakeFutureDates(12, true))
//
// # Uncertainty
//
// Prediction intervals use the residual standard deviation and the normal
// quantile for Options.IntervalWidth. Intervals are constant across the
// history and widen with the square root of the number of months ahead.
package changepoint
