// Package forecast turns fitted models into dated forecasts.
//
// Smoothing forecasts continue a Holt-Winters model past its training data.
// Changepoint forecasts come from a cached changepoint fit and carry
// uncertainty intervals.
package forecast
