// Package sales loads daily shop sales, cleans them and rolls them up into
// monthly series.
//
// # Loading
//
//	table, err := sales.LoadRecords("src/data/sales_train.csv")
//	shops, err := sales.LoadShops("src/data/shops.csv")
//
// Empty cells, NA, NaN and null mark a value as missing; Table.NullCounts
// reports how many cells of each column were missing.
//
// # Preprocessing
//
// Preprocess runs the cleaning steps in order:
//
//	res, err := sales.Preprocess(table, sales.PreprocessOptions{MinRecords: 4})
//	// res.Table, res.Offset, res.DroppedRecords, res.DroppedShops
//
// The steps are also exported individually: ParseDates, FillMissing,
// FilterShops and AdjustPositive.
//
// # Aggregation
//
//	id := 25
//	series, title := sales.MonthlyTotals(res.Table, &id)
package sales
