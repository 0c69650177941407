package sales

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Field identifies a column of the sales file.
type Field uint8

const (
	FieldDate Field = 1 << iota
	FieldDateBlockNum
	FieldShopID
	FieldItemID
	FieldItemPrice
	FieldItemCnt
)

// Column names of the sales file.
const (
	ColDate         = "date"
	ColDateBlockNum = "date_block_num"
	ColShopID       = "shop_id"
	ColItemID       = "item_id"
	ColItemPrice    = "item_price"
	ColItemCnt      = "item_cnt_day"
	ColShopName     = "shop_name"
)

var fieldColumns = []struct {
	field Field
	name  string
}{
	{FieldDate, ColDate},
	{FieldDateBlockNum, ColDateBlockNum},
	{FieldShopID, ColShopID},
	{FieldItemID, ColItemID},
	{FieldItemPrice, ColItemPrice},
	{FieldItemCnt, ColItemCnt},
}

// String returns the column name of a field, or the names of a combined
// mask joined by "|". The zero mask is "".
func (f Field) String() string {
	var names []string
	for _, fc := range fieldColumns {
		if f.Has(fc.field) {
			names = append(names, fc.name)
		}
	}
	return strings.Join(names, "|")
}

// Has reports whether every bit of other is set in f.
func (f Field) Has(other Field) bool {
	return f&other == other
}

// Record is one row of daily sales for a (shop, item, day).
type Record struct {
	RawDate      string
	Date         time.Time
	DateBlockNum int
	ShopID       int
	ItemID       int
	ItemPrice    float64
	ItemCnt      float64

	// Missing holds the fields that were empty in the source and have not
	// been filled yet. Missing floats are also NaN.
	Missing Field
}

// identity are the fields a record cannot be attributed without.
const identity = FieldDate | FieldDateBlockNum | FieldShopID

// Table is an ordered collection of sales records. Operations on a Table
// return a new Table and leave the receiver untouched.
type Table []Record

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// NullCounts returns the number of missing cells per column.
func (t Table) NullCounts() map[string]int {
	counts := make(map[string]int, len(fieldColumns))
	for _, fc := range fieldColumns {
		counts[fc.name] = 0
	}
	for _, r := range t {
		if r.Missing == 0 {
			continue
		}
		for _, fc := range fieldColumns {
			if r.Missing.Has(fc.field) {
				counts[fc.name]++
			}
		}
	}
	return counts
}

// ShopIDs returns the distinct shop ids in ascending order.
func (t Table) ShopIDs() []int {
	seen := make(map[int]struct{})
	for _, r := range t {
		if r.Missing.Has(FieldShopID) {
			continue
		}
		seen[r.ShopID] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CountByShop returns the number of records per shop.
func (t Table) CountByShop() map[int]int {
	counts := make(map[int]int)
	for _, r := range t {
		if !r.Missing.Has(FieldShopID) {
			counts[r.ShopID]++
		}
	}
	return counts
}

// MinItemCnt returns the smallest non-NaN item count, or NaN if there is none.
func (t Table) MinItemCnt() float64 {
	minimum := math.NaN()
	for _, r := range t {
		if math.IsNaN(r.ItemCnt) {
			continue
		}
		if math.IsNaN(minimum) || r.ItemCnt < minimum {
			minimum = r.ItemCnt
		}
	}
	return minimum
}
