package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/salescast/analysis"
)

// Sheet names of the workbook.
const (
	SheetMonthly       = "Monthly"
	SheetDecomposition = "Decomposition"
	SheetInSample      = "In-Sample"
	SheetForecast      = "Forecast"
	SheetSplit         = "Split"
	SheetSelection     = "Selection"
)

const dateFormat = "yyyy-mm"

// WriteWorkbook renders the report as an xlsx workbook with one data sheet
// and line chart per panel.
func WriteWorkbook(report *analysis.Report, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	b := &builder{f: f}
	b.monthly(report)
	b.decomposition(report)
	b.inSample(report)
	b.forecast(report)
	b.split(report)
	b.selection(report)
	if b.err != nil {
		return b.err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "remove default sheet")
	}
	if idx, err := f.GetSheetIndex(SheetMonthly); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

// SaveWorkbook writes the workbook to path.
func SaveWorkbook(report *analysis.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteWorkbook(report, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// builder keeps the first error so the sheet writers stay linear.
type builder struct {
	f   *excelize.File
	err error

	dateStyle int
}

func (b *builder) monthly(r *analysis.Report) {
	rows := make([][]interface{}, len(r.Monthly.Points))
	for i, p := range r.Monthly.Points {
		rows[i] = []interface{}{p.Date, cell(p.Value)}
	}
	b.table(SheetMonthly, []string{"Date", "Sales"}, rows)
	b.chart(SheetMonthly, "D2", r.Title, len(rows), 2)
}

func (b *builder) decomposition(r *analysis.Report) {
	header := []string{"Date"}
	for _, d := range r.Decompositions {
		header = append(header, d.Model+" trend", d.Model+" seasonal", d.Model+" residual")
	}

	var rows [][]interface{}
	if len(r.Decompositions) > 0 {
		first := r.Decompositions[0]
		rows = make([][]interface{}, len(first.Trend.Points))
		for i, p := range first.Trend.Points {
			row := []interface{}{p.Date}
			for _, d := range r.Decompositions {
				row = append(row, cell(d.Trend.Points[i].Value), cell(d.Seasonal.Points[i].Value), cell(d.Residual.Points[i].Value))
			}
			rows[i] = row
		}
	}
	b.table(SheetDecomposition, header, rows)

	for i, d := range r.Decompositions {
		anchor := fmt.Sprintf("%s%d", columnName(len(header)+2), 2+i*22)
		first := 2 + 3*i
		b.chart(SheetDecomposition, anchor, "Decomposition ("+d.Model+")", len(rows), first, first+1, first+2)
	}
}

func (b *builder) inSample(r *analysis.Report) {
	rows := make([][]interface{}, 0, len(r.Monthly.Points))
	if r.InSample != nil {
		fitted := byDate(r.InSample.Points)
		for _, p := range r.Monthly.Points {
			row := []interface{}{p.Date, cell(p.Value), nil, nil, nil}
			if fp, ok := fitted[p.Date.Unix()]; ok {
				row[2], row[3], row[4] = cell(fp.Value), cell(fp.Lower), cell(fp.Upper)
			}
			rows = append(rows, row)
		}
	}
	b.table(SheetInSample, []string{"Date", "Actual", "Fitted", "Lower", "Upper"}, rows)
	b.chart(SheetInSample, "G2", "In-Sample Fit", len(rows), 2, 3, 4, 5)
}

func (b *builder) forecast(r *analysis.Report) {
	var rows [][]interface{}
	if r.Extended != nil {
		actual := make(map[int64]analysis.Number, len(r.Monthly.Points))
		for _, p := range r.Monthly.Points {
			actual[p.Date.Unix()] = p.Value
		}
		for _, p := range r.Extended.Points {
			row := []interface{}{p.Date, nil, cell(p.Value), cell(p.Lower), cell(p.Upper)}
			if value, ok := actual[p.Date.Unix()]; ok {
				row[1] = cell(value)
			}
			rows = append(rows, row)
		}
	}
	b.table(SheetForecast, []string{"Date", "Actual", "Forecast", "Lower", "Upper"}, rows)
	b.chart(SheetForecast, "G2", "Extended Forecast", len(rows), 2, 3, 4, 5)
}

func (b *builder) split(r *analysis.Report) {
	var predicted map[int64]analysis.BandPoint
	if r.Predictions != nil {
		predicted = byDate(r.Predictions.Points)
	}

	var rows [][]interface{}
	segments := []analysis.Series{r.Split.Train, r.Split.Valid, r.Split.Test}
	for s, segment := range segments {
		for _, p := range segment.Points {
			row := []interface{}{p.Date, nil, nil, nil, nil}
			row[1+s] = cell(p.Value)
			if bp, ok := predicted[p.Date.Unix()]; ok {
				row[4] = cell(bp.Value)
			}
			rows = append(rows, row)
		}
	}
	b.table(SheetSplit, []string{"Date", "Train", "Validation", "Test", "Prediction"}, rows)

	title := "Train / Validation / Test"
	if r.Selection.Viable {
		title += " (" + r.Selection.Label + ")"
	}
	b.chart(SheetSplit, "G2", title, len(rows), 2, 3, 4, 5)
}

func (b *builder) selection(r *analysis.Report) {
	rows := [][]interface{}{
		{"Run", r.RunID, nil},
		{"Title", r.Title, nil},
		{"Offset", r.Offset, nil},
		{"Selected", r.Selection.Label, cell(r.Selection.MSE)},
		{},
		{"Configuration", "MSE", "Error"},
	}
	if !r.Selection.Viable {
		rows[3] = []interface{}{"Selected", "none", r.Selection.Reason}
	}
	for _, a := range r.Selection.Attempts {
		rows = append(rows, []interface{}{a.Label, cell(a.MSE), a.Error})
	}
	if acc := r.Selection.TestAccuracy; acc != nil {
		rows = append(rows, []interface{}{},
			[]interface{}{"Test RMSE", cell(acc.RMSE), acc.Points},
			[]interface{}{"Test MAE", cell(acc.MAE), acc.Points},
			[]interface{}{"Test MAPE (%)", cell(acc.MAPE), acc.Points},
		)
	}
	b.table(SheetSelection, []string{"Field", "Value", "Detail"}, rows)
}

// table creates sheet and writes header and rows starting at A1.
func (b *builder) table(sheet string, header []string, rows [][]interface{}) {
	if b.err != nil {
		return
	}
	if _, err := b.f.NewSheet(sheet); err != nil {
		b.err = errors.Wrapf(err, "create sheet %s", sheet)
		return
	}

	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := b.f.SetSheetRow(sheet, "A1", &head); err != nil {
		b.err = errors.Wrapf(err, "write %s header", sheet)
		return
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		addr, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := b.f.SetSheetRow(sheet, addr, &row); err != nil {
			b.err = errors.Wrapf(err, "write %s row %d", sheet, i+2)
			return
		}
	}

	if len(rows) > 0 {
		if _, isDate := rows[0][0].(time.Time); isDate {
			b.setDateColumn(sheet)
		}
	}
	if b.err == nil {
		b.err = b.f.SetColWidth(sheet, "A", columnName(len(header)), 14)
	}
}

func (b *builder) setDateColumn(sheet string) {
	if b.dateStyle == 0 {
		format := dateFormat
		style, err := b.f.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			b.err = errors.Wrap(err, "date style")
			return
		}
		b.dateStyle = style
	}
	b.err = b.f.SetColStyle(sheet, "A", b.dateStyle)
}

// chart adds a line chart of the given 1-based value columns against the
// date column.
func (b *builder) chart(sheet, anchor, title string, n int, columns ...int) {
	if b.err != nil || n == 0 {
		return
	}

	series := make([]excelize.ChartSeries, len(columns))
	for i, c := range columns {
		col := columnName(c)
		series[i] = excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, col),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, col, col, n+1),
		}
	}

	err := b.f.AddChart(sheet, anchor, &excelize.Chart{
		Type:         excelize.Line,
		Series:       series,
		Title:        []excelize.RichTextRun{{Text: title}},
		Legend:       excelize.ChartLegend{Position: "bottom"},
		Dimension:    excelize.ChartDimension{Width: 720, Height: 400},
		ShowBlanksAs: "gap",
	})
	if err != nil {
		b.err = errors.Wrapf(err, "chart on %s", sheet)
	}
}

// cell maps NaN to an empty cell.
func cell(n analysis.Number) interface{} {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func columnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

func byDate(points []analysis.BandPoint) map[int64]analysis.BandPoint {
	out := make(map[int64]analysis.BandPoint, len(points))
	for _, p := range points {
		out[p.Date.Unix()] = p
	}
	return out
}
