package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"wellcast/internal/evaluation"
)

// Workbook sheet names
const (
	SeriesSheet   = "Series"
	AccuracySheet = "Accuracy"
	ForecastSheet = "Forecast"
	ChartSheet    = "Chart"
)

// chartData lays out history and each model's forecast on one date axis
type chartData struct {
	dates  []string
	names  []string
	values [][]interface{} // values[row][col]; nil leaves a gap
}

func newChartData(r *Report) chartData {
	var d chartData
	history := r.history()
	d.names = append(d.names, "observed")
	for _, p := range history.Points {
		d.dates = append(d.dates, formatDate(p.Date))
		d.values = append(d.values, []interface{}{p.Value})
	}
	if r.Forecasts == nil {
		return d
	}

	results := r.Forecasts.Successful()
	base := len(d.dates)
	for _, res := range results {
		d.names = append(d.names, res.ModelName)
	}
	for i := range d.values {
		d.values[i] = append(d.values[i], make([]interface{}, len(results))...)
	}

	index := make(map[string]int)
	for j, res := range results {
		for _, p := range res.Point.Points {
			date := formatDate(p.Date)
			row, ok := index[date]
			if !ok {
				row = len(d.dates)
				index[date] = row
				d.dates = append(d.dates, date)
				d.values = append(d.values, make([]interface{}, len(results)+1))
			}
			d.values[row][j+1] = p.Value
		}
	}
	// join each forecast to the last observation so the lines connect
	if base > 0 {
		last := d.values[base-1][0]
		for j := range results {
			d.values[base-1][j+1] = last
		}
	}
	return d
}

// WriteWorkbook writes the series, accuracy and forecast tables plus a
// line chart of history and forecasts to an XLSX file
func WriteWorkbook(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SeriesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSeriesSheet(f, header, r); err != nil {
		return err
	}
	if r.Accuracy != nil {
		if err := writeAccuracySheet(f, header, *r.Accuracy); err != nil {
			return err
		}
	}
	if r.Forecasts != nil {
		if err := writeForecastSheet(f, header, r); err != nil {
			return err
		}
	}
	if err := writeChartSheet(f, header, r); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSeriesSheet(f *excelize.File, header int, r *Report) error {
	testStart := r.Clipped.Len()
	if r.Split != nil {
		testStart = r.Split.Training.Len()
	}
	replaced := make(map[int]bool)
	if r.Clip != nil {
		for _, i := range r.Clip.Indices {
			replaced[i] = true
		}
	}

	rows := [][]interface{}{{"date", "raw", "clipped", "replaced", "partition"}}
	for i, p := range r.history().Points {
		var raw interface{}
		if i < r.Raw.Len() {
			raw = r.Raw.Points[i].Value
		}
		partition := "training"
		if i >= testStart {
			partition = "testing"
		}
		rows = append(rows, []interface{}{formatDate(p.Date), raw, p.Value, replaced[i], partition})
	}
	return writeTable(f, SeriesSheet, header, rows)
}

func writeAccuracySheet(f *excelize.File, header int, report evaluation.Report) error {
	if _, err := f.NewSheet(AccuracySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	head := []interface{}{"model", "kind", "partition", "n"}
	for _, name := range evaluation.MetricNames {
		head = append(head, name)
	}
	head = append(head, "error")

	rows := [][]interface{}{head}
	for _, e := range report.Entries {
		rows = append(rows,
			metricCells([]interface{}{e.ModelName, string(e.Kind), "train"}, e.Train, e.Error),
			metricCells([]interface{}{e.ModelName, string(e.Kind), "test"}, e.Test, e.Error),
		)
	}
	return writeTable(f, AccuracySheet, header, rows)
}

func writeForecastSheet(f *excelize.File, header int, r *Report) error {
	if _, err := f.NewSheet(ForecastSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]interface{}{{"model", "kind", "date", "forecast", "lower", "upper", "confidence"}}
	for _, res := range r.Forecasts.Successful() {
		for i, p := range res.Point.Points {
			rows = append(rows, []interface{}{
				res.ModelName,
				string(res.Kind),
				formatDate(p.Date),
				cellValue(p.Value),
				cellValue(res.Lower.Points[i].Value),
				cellValue(res.Upper.Points[i].Value),
				res.Confidence,
			})
		}
	}
	return writeTable(f, ForecastSheet, header, rows)
}

func writeChartSheet(f *excelize.File, header int, r *Report) error {
	data := newChartData(r)
	if len(data.dates) == 0 {
		return nil
	}
	if _, err := f.NewSheet(ChartSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	head := []interface{}{"date"}
	for _, name := range data.names {
		head = append(head, name)
	}
	rows := [][]interface{}{head}
	for i, date := range data.dates {
		row := []interface{}{date}
		for _, v := range data.values[i] {
			if fv, ok := v.(float64); ok {
				row = append(row, cellValue(fv))
			} else {
				row = append(row, nil)
			}
		}
		rows = append(rows, row)
	}
	if err := writeTable(f, ChartSheet, header, rows); err != nil {
		return err
	}

	last := len(data.dates) + 1
	chart := &excelize.Chart{
		Type:         excelize.Line,
		Title:        []excelize.RichTextRun{{Text: r.title()}},
		Legend:       excelize.ChartLegend{Position: "bottom"},
		Dimension:    excelize.ChartDimension{Width: 960, Height: 480},
		ShowBlanksAs: "gap",
		XAxis:        excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "date"}}},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
			Title:          []excelize.RichTextRun{{Text: r.Target}},
		},
	}
	for j := range data.names {
		col, err := excelize.ColumnNumberToName(j + 2)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", ChartSheet, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", ChartSheet, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ChartSheet, col, col, last),
			Line:       excelize.ChartLine{Width: 1.5},
		})
	}

	anchor, err := excelize.CoordinatesToCellName(len(data.names)+3, 2)
	if err != nil {
		return err
	}
	if err := f.AddChart(ChartSheet, anchor, chart); err != nil {
		return fmt.Errorf("failed to add chart: %w", err)
	}
	return nil
}

// writeTable writes rows from A1, styles the header and freezes it
func writeTable(f *excelize.File, sheet string, header int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, header); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func metricCells(prefix []interface{}, m evaluation.Metrics, errText string) []interface{} {
	row := append(append([]interface{}(nil), prefix...), m.N)
	for _, name := range evaluation.MetricNames {
		v, _ := m.Value(name)
		row = append(row, cellValue(v))
	}
	return append(row, errText)
}

// cellValue leaves undefined numbers as empty cells
func cellValue(v float64) interface{} {
	if !finite(v) {
		return nil
	}
	return v
}
