package sales

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sartorproj/salescast/timeseries"
)

// SeriesName is the name given to aggregated monthly series.
const SeriesName = "total_monthly_sales"

type monthKey struct {
	block int
	date  time.Time
}

// MonthlyTotals sums item counts per (date block, month) for one shop, or
// across all shops when shopID is nil. The series is ordered by date block
// then month; NaN counts contribute nothing. The second return value is the
// display title.
func MonthlyTotals(table Table, shopID *int) (*timeseries.Series, string) {
	title := "Monthly Sales Across All Shops"
	if shopID != nil {
		title = fmt.Sprintf("Monthly Sales for Shop %d", *shopID)
	}

	totals := make(map[monthKey]float64)
	for _, r := range table {
		if shopID != nil && r.ShopID != *shopID {
			continue
		}
		key := monthKey{block: r.DateBlockNum, date: r.Date}
		sum := totals[key]
		if !math.IsNaN(r.ItemCnt) {
			sum += r.ItemCnt
		}
		totals[key] = sum
	}

	keys := make([]monthKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].block != keys[j].block {
			return keys[i].block < keys[j].block
		}
		return keys[i].date.Before(keys[j].date)
	})

	timestamps := make([]time.Time, len(keys))
	values := make([]float64, len(keys))
	for i, k := range keys {
		timestamps[i] = k.date
		values[i] = totals[k]
	}

	return &timeseries.Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       SeriesName,
	}, title
}
