// Package stats provides statistical analysis functions for monthly sales
// series.
//
// # Time Series Decomposition
//
// Split a series into trend, seasonal and residual components:
//
//	additive, err := stats.Decompose(series, 12, stats.Additive)
//	multiplicative, err := stats.Decompose(series, 12, stats.Multiplicative)
//	// decomp.Trend, decomp.Seasonal, decomp.Residual
//
// Decomposition needs at least two full periods; multiplicative
// decomposition additionally needs strictly positive values.
//
// # Residual Diagnostics
//
// Test model residuals for autocorrelation:
//
//	lb := stats.LjungBox(residuals, 10, 3)
//	if lb.WhiteNoise() {
//	    // residuals show no significant autocorrelation
//	}
//
//	dw := stats.DurbinWatson(residuals.Values)
//
// # Forecast Accuracy
//
//	mse, err := stats.MSE(actual, predicted)
//	rmse, err := stats.RMSE(actual, predicted)
//	mae, err := stats.MAE(actual, predicted)
//	mape, err := stats.MAPE(actual, predicted)
package stats
