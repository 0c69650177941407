package sales

import (
	"math"
	"time"

	"github.com/sartorproj/salescast/timeseries"
)

// DateLayout is the layout of the raw date column (dd.mm.yyyy).
const DateLayout = "02.01.2006"

// DefaultMinRecords is the minimum number of records a shop needs to be kept.
const DefaultMinRecords = 4

// ParseDates parses RawDate of every record and normalizes Date to the first
// day of its month. Records with a missing date keep FieldDate in Missing.
func ParseDates(table Table) (Table, error) {
	out := table.Clone()
	for i := range out {
		if out[i].Missing.Has(FieldDate) {
			continue
		}
		t, err := time.Parse(DateLayout, out[i].RawDate)
		if err != nil {
			// header is line 1
			return nil, parseError(i+2, "%s %q does not match dd.mm.yyyy", ColDate, out[i].RawDate)
		}
		out[i].Date = timeseries.MonthStart(t)
	}
	return out, nil
}

// FillMissing forward-fills every missing field from the preceding record,
// then linearly interpolates remaining numeric gaps. Leading gaps have no
// earlier value and stay missing. Records whose date, date block or shop is
// still unknown are dropped; the number dropped is returned.
func FillMissing(table Table) (Table, int) {
	out := table.Clone()

	for i := 1; i < len(out); i++ {
		prev, cur := &out[i-1], &out[i]
		if cur.Missing == 0 {
			continue
		}
		fill := cur.Missing &^ prev.Missing
		if fill.Has(FieldDate) {
			cur.RawDate, cur.Date = prev.RawDate, prev.Date
		}
		if fill.Has(FieldDateBlockNum) {
			cur.DateBlockNum = prev.DateBlockNum
		}
		if fill.Has(FieldShopID) {
			cur.ShopID = prev.ShopID
		}
		if fill.Has(FieldItemID) {
			cur.ItemID = prev.ItemID
		}
		if fill.Has(FieldItemPrice) {
			cur.ItemPrice = prev.ItemPrice
		}
		if fill.Has(FieldItemCnt) {
			cur.ItemCnt = prev.ItemCnt
		}
		cur.Missing &^= fill
	}

	interpolateColumn(out, FieldItemPrice, func(r *Record) *float64 { return &r.ItemPrice })
	interpolateColumn(out, FieldItemCnt, func(r *Record) *float64 { return &r.ItemCnt })

	kept := out[:0]
	dropped := 0
	for _, r := range out {
		if r.Missing&identity != 0 {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

func interpolateColumn(table Table, field Field, value func(*Record) *float64) {
	column := make([]float64, len(table))
	for i := range table {
		column[i] = *value(&table[i])
	}
	for i, v := range timeseries.Interpolate(column) {
		if math.IsNaN(v) {
			continue
		}
		*value(&table[i]) = v
		table[i].Missing &^= field
	}
}

// FilterShops keeps only the records of shops with at least minRecords
// records. A shop is kept or removed as a whole. Record order is preserved.
func FilterShops(table Table, minRecords int) Table {
	counts := table.CountByShop()
	out := make(Table, 0, len(table))
	for _, r := range table {
		if counts[r.ShopID] >= minRecords {
			out = append(out, r)
		}
	}
	return out
}

// Offset is the constant added to item counts to make them strictly
// positive. The zero Offset means no adjustment was made.
type Offset float64

// Apply shifts a raw value into the adjusted space.
func (o Offset) Apply(v float64) float64 { return v + float64(o) }

// Invert maps an adjusted value back to the original scale.
func (o Offset) Invert(v float64) float64 { return v - float64(o) }

// AdjustPositive shifts every item count by |min|+1 when the minimum count
// is zero or negative, so that multiplicative models can be fitted. NaN
// counts are ignored when finding the minimum and stay NaN.
func AdjustPositive(table Table) (Table, Offset) {
	minimum := table.MinItemCnt()
	if math.IsNaN(minimum) || minimum > 0 {
		return table.Clone(), 0
	}

	offset := Offset(math.Abs(minimum) + 1)
	out := table.Clone()
	for i := range out {
		out[i].ItemCnt = offset.Apply(out[i].ItemCnt)
	}
	return out, offset
}

// PreprocessOptions configures Preprocess.
type PreprocessOptions struct {
	MinRecords int
}

// PreprocessResult is the outcome of the preprocessing pipeline.
type PreprocessResult struct {
	Table          Table
	Offset         Offset
	DroppedRecords int
	DroppedShops   int
}

// Preprocess parses dates, fills missing values, drops shops with too few
// records and shifts item counts to be strictly positive.
func Preprocess(table Table, opts PreprocessOptions) (*PreprocessResult, error) {
	if opts.MinRecords <= 0 {
		opts.MinRecords = DefaultMinRecords
	}

	parsed, err := ParseDates(table)
	if err != nil {
		return nil, err
	}

	filled, dropped := FillMissing(parsed)

	filtered := FilterShops(filled, opts.MinRecords)
	shopsBefore := len(filled.ShopIDs())

	adjusted, offset := AdjustPositive(filtered)

	return &PreprocessResult{
		Table:          adjusted,
		Offset:         offset,
		DroppedRecords: dropped,
		DroppedShops:   shopsBefore - len(filtered.ShopIDs()),
	}, nil
}
