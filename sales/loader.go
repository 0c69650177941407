package sales

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var requiredSalesColumns = []string{ColDate, ColDateBlockNum, ColShopID, ColItemCnt}

// LoadRecords reads the daily sales file at path.
func LoadRecords(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrRead, "open %s: %v", path, err)
	}
	defer file.Close()

	table, err := ReadRecords(file)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return table, nil
}

// ReadRecords reads daily sales records from a CSV stream with a header
// row. Columns are matched by name; item_id and item_price are optional.
func ReadRecords(r io.Reader) (Table, error) {
	reader := newReader(r)

	index, err := readHeader(reader, requiredSalesColumns)
	if err != nil {
		return nil, err
	}

	var table Table
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRecord(row, index, line)
		if err != nil {
			return nil, err
		}
		table = append(table, rec)
	}

	return table, nil
}

func parseRecord(row []string, index map[string]int, line int) (Record, error) {
	rec := Record{ItemPrice: math.NaN(), ItemCnt: math.NaN()}

	if raw, ok := cell(row, index, ColDate); ok {
		rec.RawDate = raw
	} else {
		rec.Missing |= FieldDate
	}

	ints := []struct {
		col   string
		field Field
		dst   *int
	}{
		{ColDateBlockNum, FieldDateBlockNum, &rec.DateBlockNum},
		{ColShopID, FieldShopID, &rec.ShopID},
		{ColItemID, FieldItemID, &rec.ItemID},
	}
	for _, c := range ints {
		raw, ok := cell(row, index, c.col)
		if !ok {
			rec.Missing |= c.field
			continue
		}
		v, err := parseInt(raw)
		if err != nil {
			return Record{}, parseError(line, "%s %q is not an integer", c.col, raw)
		}
		*c.dst = v
	}

	floatCols := []struct {
		col   string
		field Field
		dst   *float64
	}{
		{ColItemPrice, FieldItemPrice, &rec.ItemPrice},
		{ColItemCnt, FieldItemCnt, &rec.ItemCnt},
	}
	for _, c := range floatCols {
		raw, ok := cell(row, index, c.col)
		if !ok {
			rec.Missing |= c.field
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, parseError(line, "%s %q is not a number", c.col, raw)
		}
		*c.dst = v
	}

	return rec, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return reader
}

// readHeader maps column names to their positions and checks that every
// required column is present.
func readHeader(reader *csv.Reader, required []string) (map[string]int, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, parseError(1, "missing header row")
	}
	if err != nil {
		return nil, wrapReadError(err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.TrimSpace(strings.Trim(h, "\""))
		index[h] = i
	}

	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, parseError(1, "missing column %q", col)
		}
	}
	return index, nil
}

// cell returns the trimmed value of a column, or false when the column is
// absent or the cell holds a missing-value marker.
func cell(row []string, index map[string]int, col string) (string, bool) {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[i])
	switch v {
	case "", "NA", "NaN", "nan", "null":
		return "", false
	}
	return v, true
}

// parseInt accepts integers written either plainly or as integral floats
// ("59.0").
func parseInt(raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errors.Errorf("%q is not integral", raw)
	}
	return int(f), nil
}

func wrapReadError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return parseError(pe.Line, "%v", pe.Err)
	}
	return errors.Wrapf(ErrRead, "%v", err)
}
