package export

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/salescast/analysis"
)

var start = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

func series(name string, from, n int, value func(i int) float64) analysis.Series {
	s := analysis.Series{Name: name}
	for i := from; i < from+n; i++ {
		s.Points = append(s.Points, analysis.Point{Date: start.AddDate(0, i, 0), Value: analysis.Number(value(i))})
	}
	return s
}

func band(method string, from, n int, bounds bool) *analysis.Forecast {
	f := &analysis.Forecast{Method: method, HasBounds: bounds}
	for i := from; i < from+n; i++ {
		p := analysis.BandPoint{
			Date:  start.AddDate(0, i, 0),
			Value: analysis.Number(100 + i),
			Lower: analysis.Number(math.NaN()),
			Upper: analysis.Number(math.NaN()),
		}
		if bounds {
			p.Lower, p.Upper = p.Value-5, p.Value+5
		}
		f.Points = append(f.Points, p)
	}
	return f
}

func sampleReport() *analysis.Report {
	value := func(i int) float64 { return float64(100 + i) }
	nan := func(i int) float64 {
		if i < 6 || i >= 18 {
			return math.NaN()
		}
		return float64(i)
	}

	monthly := series("total_monthly_sales", 0, 30, value)
	monthly.Points[3].Value = analysis.Number(math.NaN())

	return &analysis.Report{
		RunID:   "run-1",
		Title:   "Monthly Sales for Shop 25",
		Offset:  2,
		Monthly: monthly,
		Decompositions: []analysis.Decomposition{{
			Model:    "additive",
			Period:   12,
			Trend:    series("trend", 0, 30, nan),
			Seasonal: series("seasonal", 0, 30, func(i int) float64 { return float64(i % 12) }),
			Residual: series("residual", 0, 30, nan),
		}},
		InSample: band("changepoint", 0, 30, true),
		Extended: band("changepoint", 0, 36, true),
		Split: analysis.SplitReport{
			Train: series("train", 0, 24, value),
			Valid: series("valid", 24, 3, value),
			Test:  series("test", 27, 3, value),
		},
		Predictions: band("holt-winters", 24, 6, false),
		Selection: analysis.Selection{
			Viable: true,
			Label:  "Trend: add, Seasonal: add",
			MSE:    12.5,
			Attempts: []analysis.Attempt{
				{Label: "Trend: add, Seasonal: add", MSE: 12.5},
				{Label: "Trend: add, Seasonal: mul", MSE: analysis.Number(math.NaN()), Error: "boom"},
			},
			TestAccuracy: &analysis.Accuracy{Points: 3, RMSE: 2, MAE: 1.5, MAPE: 1.25},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(sampleReport(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetMonthly, SheetDecomposition, SheetInSample, SheetForecast, SheetSplit, SheetSelection,
	}, f.GetSheetList())

	rows, err := f.GetRows(SheetMonthly)
	require.NoError(t, err)
	require.Len(t, rows, 31)
	assert.Equal(t, []string{"Date", "Sales"}, rows[0])

	v, err := f.GetCellValue(SheetMonthly, "B2")
	require.NoError(t, err)
	assert.Equal(t, "100", v)

	v, err = f.GetCellValue(SheetMonthly, "B5")
	require.NoError(t, err)
	assert.Empty(t, v, "NaN is written as an empty cell")

	header, err := f.GetRows(SheetDecomposition)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "additive trend", "additive seasonal", "additive residual"}, header[0])

	forecastRows, err := f.GetRows(SheetForecast)
	require.NoError(t, err)
	assert.Len(t, forecastRows, 37)

	// first validation month: column E holds the prediction
	v, err = f.GetCellValue(SheetSplit, "C26")
	require.NoError(t, err)
	assert.Equal(t, "124", v)
	v, err = f.GetCellValue(SheetSplit, "E26")
	require.NoError(t, err)
	assert.Equal(t, "124", v)
	v, err = f.GetCellValue(SheetSplit, "E25")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = f.GetCellValue(SheetSelection, "B5")
	require.NoError(t, err)
	assert.Equal(t, "Trend: add, Seasonal: add", v)
	v, err = f.GetCellValue(SheetSelection, "C9")
	require.NoError(t, err)
	assert.Equal(t, "boom", v)
	v, err = f.GetCellValue(SheetSelection, "A11")
	require.NoError(t, err)
	assert.Equal(t, "Test RMSE", v)
	v, err = f.GetCellValue(SheetSelection, "B11")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWriteWorkbookWithoutModel(t *testing.T) {
	report := sampleReport()
	report.Decompositions = nil
	report.InSample, report.Extended, report.Predictions = nil, nil, nil
	report.Selection = analysis.Selection{
		MSE:    analysis.Number(math.NaN()),
		Reason: "no viable holt-winters configuration",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(report, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetSelection, "B5")
	require.NoError(t, err)
	assert.Equal(t, "none", v)
}

func TestSaveWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveWorkbook(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 6)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(sampleReport(), &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])

	monthly := decoded["monthly"].(map[string]interface{})
	points := monthly["points"].([]interface{})
	require.Len(t, points, 30)
	assert.Nil(t, points[3].(map[string]interface{})["value"])

	selection := decoded["selection"].(map[string]interface{})
	assert.Equal(t, true, selection["viable"])
	assert.Equal(t, 12.5, selection["mse"])
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveJSON(sampleReport(), path))

	assert.FileExists(t, path)
}
