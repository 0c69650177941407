// Package holtwinters implements Holt-Winters triple exponential smoothing.
//
// A Holt-Winters model tracks three states:
//   - Level: the deseasonalised value of the series
//   - Trend: the change per period, added (add) or multiplied (mul)
//   - Seasonal: one factor per position in the cycle, added or multiplied
//
// The smoothing parameters alpha, beta and gamma are estimated by
// minimising the sum of squared one-step-ahead errors.
//
// # Basic Usage
//
//	model := holtwinters.New(holtwinters.Config{
//	    Trend:    holtwinters.Additive,
//	    Seasonal: holtwinters.Multiplicative,
//	    Period:   12,
//	})
//
//	if err := model.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//
//	forecasts, _ := model.Forecast(12)
//
// # Requirements
//
// Fitting needs at least two full seasonal periods. Configurations with a
// multiplicative component need strictly positive data and fail with
// ErrNonPositive otherwise.
//
// # Model Selection
//
// Configs lists the four trend/seasonal combinations; the selection package
// fits all of them and keeps the one with the lowest validation error.
// AIC, AICc and BIC are also available on the fitted model.
package holtwinters
