// Package analysis runs the sales forecasting pipeline for one shop.
//
// A run reloads the sales and shop files, preprocesses them, aggregates the
// chosen shop to monthly totals and collects everything a presentation
// layer needs into a Report:
//
//   - the monthly series and its additive and multiplicative decompositions
//   - the changepoint fit over history and its extended forecast with an
//     uncertainty band
//   - the train/validation/test split, the selected Holt-Winters
//     configuration and its predictions over validation and test
//
// Reports encode NaN values as JSON null.
package analysis
