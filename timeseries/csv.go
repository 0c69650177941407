package timeseries

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// DateLayout is the layout used for dates in exported files.
const DateLayout = "2006-01-02"

// WriteCSV writes the series as a two column "ds,y" table. Series without
// timestamps are written with a 1-based index column instead. NaN values are
// written as empty cells.
func WriteCSV(w io.Writer, series *Series) error {
	writer := csv.NewWriter(w)

	withDates := series.HasTimestamps()
	header := []string{"index", "y"}
	if withDates {
		header[0] = "ds"
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for i, v := range series.Values {
		row := make([]string, 2)
		if withDates {
			row[0] = series.Timestamps[i].Format(DateLayout)
		} else {
			row[0] = strconv.Itoa(i + 1)
		}
		if !math.IsNaN(v) {
			row[1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row %d", i+1)
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flush csv")
}

// SaveCSV saves a time series to a CSV file.
func SaveCSV(series *Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create %s", filename)
	}
	defer file.Close()

	return WriteCSV(file, series)
}
