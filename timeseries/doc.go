// Package timeseries provides the monthly time series type used across
// salescast, along with calendar helpers and chronological splitting.
//
// # Creating a Series
//
// A series built from bare values is laid out one month apart from Epoch:
//
//	series := timeseries.New([]float64{100, 102, 105, 103})
//
// Series built from aggregated sales carry their own month starts:
//
//	series, err := timeseries.NewWithTimestamps(months, totals)
//
// # Monthly Frequency
//
// Models assume one observation per calendar month. AsMonthly re-indexes a
// series to month starts and rejects gaps and repeated months:
//
//	monthly, err := timeseries.AsMonthly(series)
//	if errors.Is(err, timeseries.ErrIrregularFrequency) {
//	    ...
//	}
//
// # Splitting
//
// SplitFractions cuts a sorted series into contiguous train, validation
// and test parts:
//
//	split, err := timeseries.SplitFractions(series, timeseries.DefaultFractions())
//	// split.Train, split.Valid, split.Test
//
// # Export
//
// WriteCSV writes a "ds,y" table for a single series.
package timeseries
