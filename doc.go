// Package salescast analyses and forecasts monthly shop sales.
//
// Daily sales records are cleaned, aggregated into calendar-month totals per
// shop and decomposed into trend, seasonal and residual components. Two
// forecasting paths run on the monthly series:
//
//   - a changepoint trend model with yearly Fourier seasonality that yields
//     in-sample fits and an extended forecast with an uncertainty band
//   - Holt-Winters exponential smoothing, where four trend/seasonal
//     configurations are fitted on a training window and the one with the
//     lowest validation MSE forecasts the validation and test windows
//
// # Quick Start
//
//	session := analysis.NewSession(analysis.FileSource{
//		SalesPath: "src/data/sales_train.csv",
//		ShopsPath: "src/data/shops.csv",
//	}, analysis.DefaultSettings(), logger, nil)
//
//	report, err := session.Run(ctx, analysis.Request{ShopName: "Moscow TC"})
//	if err != nil {
//		return err
//	}
//	export.SaveWorkbook(report, "report.xlsx")
//
// # Packages
//
//   - timeseries: dated series, monthly calendar checks, train/valid/test split
//   - stats: classical decomposition, ACF, Ljung-Box, error metrics
//   - sales: record loading, preprocessing and monthly aggregation
//   - holtwinters: additive and multiplicative Holt-Winters models
//   - changepoint: piecewise-linear trend with Fourier seasonality
//   - selection: concurrent Holt-Winters configuration search
//   - forecast: forecast outputs and the cached changepoint generator
//   - analysis: the end-to-end pipeline producing a Report
//   - export: xlsx workbook with charts and JSON output
//   - server: HTTP API
//   - config, logging, metrics: ambient configuration, logrus setup and
//     Prometheus collectors
//
// The command in cmd/salescast exposes run, shops and serve subcommands.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Taylor, S. J., & Letham, B. (2018). Forecasting at scale
package salescast
