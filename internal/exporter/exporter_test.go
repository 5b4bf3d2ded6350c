package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/forecast"
	"wellcast/internal/infrastructure"
	"wellcast/internal/models"
	"wellcast/internal/series"
	"wellcast/internal/stationarity"
	"wellcast/internal/wells"
)

var start = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// testReport runs a small pipeline: 36 months with one spike, a 6 month
// hold-out, one working model and one that cannot fit
func testReport(t *testing.T) *Report {
	t.Helper()
	ctx := context.Background()
	logger := infrastructure.NewLogger(&bytes.Buffer{}, "error")

	dates := make([]time.Time, 36)
	values := make([]float64, 36)
	for i := range dates {
		dates[i] = start.AddDate(0, i, 0)
		values[i] = 400 - 3*float64(i) + 15*math.Sin(2*math.Pi*float64(i)/12)
	}
	values[20] = 5000
	raw, err := series.New("total_oil", dates, values)
	require.NoError(t, err)

	clipped, clip, err := series.Clip(raw, 1.5)
	require.NoError(t, err)
	split, err := series.SplitCount(clipped, 6)
	require.NoError(t, err)
	diag, err := stationarity.Check(clipped, stationarity.AutoLag)
	require.NoError(t, err)

	ms := []models.Model{
		models.NewRidge("ridge", models.RidgeOptions{Lambda: 1}),
		models.NewARIMA("too_big", models.ARIMAOrder{P: 10, D: 2, Q: 10}),
	}
	evaluator := evaluation.NewEvaluator(logger, nil)
	accuracy, err := evaluator.Evaluate(ctx, ms, split, 0.95)
	require.NoError(t, err)

	folds, err := evaluation.RollingOrigin(clipped, 2, 6, 3)
	require.NoError(t, err)
	cv, err := evaluator.CrossValidate(ctx, ms[:1], folds, 0.95)
	require.NoError(t, err)

	set, err := forecast.New(logger, nil).Refit(ctx, ms, clipped, 6, 0.95)
	require.NoError(t, err)

	return &Report{
		RunID:       "run-1",
		Target:      "oil",
		Input:       "/data/production.csv",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Counts:      Counts{Records: 72, Wells: 2, Eligible: 1, Dropped: 1},
		Profiles: []wells.Profile{
			{WellID: "W-1", MonthsOfProduction: 36, FirstPeriod: start, LastPeriod: dates[35],
				TotalOil: 1000, TotalGas: 2000, AvgGasOilRatio: 2, AvgMonthlyGasDecline: math.NaN()},
			{WellID: "W-2", MonthsOfProduction: 3, FirstPeriod: start, LastPeriod: dates[2],
				TotalOil: 10, TotalGas: 0, AvgGasOilRatio: math.NaN(), AvgMonthlyGasDecline: math.NaN()},
		},
		Eligible:  []string{"W-1"},
		Aggregate: []wells.AggregateRow{{Period: start, Oil: 1.5, Gas: 2.25, Wells: 2}},
		Raw:       raw,
		Clipped:   clipped,
		Clip:      &clip,
		Diagnosis: &diag,
		Split:     &split,
		Accuracy:  &accuracy,
		Folds:     folds,
		CV:        &cv,
		Forecasts: &set,
		Config:    config.Default(),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteTable(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(&config.Paths{OutputDir: dir}, nil)

	path, err := w.WriteTable(Table{Name: "nested/out.csv", Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "out.csv"), path)

	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, readCSV(t, path))

	// a second write truncates
	_, err = w.WriteTable(Table{Name: "nested/out.csv", Headers: []string{"a", "b"}, Rows: [][]string{{"3", "4"}}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"3", "4"}}, readCSV(t, path))

	abs := filepath.Join(dir, "abs.csv")
	path, err = w.WriteTable(Table{Name: abs, Rows: [][]string{{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestCSVWriter_Stream(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(&config.Paths{OutputDir: dir}, nil)

	rs, err := w.Stream("stream.csv", []string{"k", "v"})
	require.NoError(t, err)
	for _, r := range [][]string{{"a", "1"}, {"b", "2"}} {
		require.NoError(t, rs.Write(r))
	}
	require.NoError(t, rs.Close())

	assert.Equal(t, [][]string{{"k", "v"}, {"a", "1"}, {"b", "2"}}, readCSV(t, rs.Path()))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"float rounds", formatFloat(1.005), "1.00"},
		{"float two decimals", formatFloat(12), "12.00"},
		{"float nan", formatFloat(math.NaN()), ""},
		{"float inf", formatFloat(math.Inf(1)), ""},
		{"metric", formatMetric(0.1234567), "0.123457"},
		{"date", formatDate(start), "2010-01-01"},
		{"zero date", formatDate(time.Time{}), ""},
		{"bool", formatBool(true), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestWriteTables(t *testing.T) {
	r := testReport(t)
	dir := t.TempDir()
	w := NewCSVWriter(&config.Paths{OutputDir: dir}, nil)

	path, err := w.WriteProfiles(ProfilesFile, r.Profiles, r.Eligible)
	require.NoError(t, err)
	profiles := readCSV(t, path)
	require.Len(t, profiles, 3)
	assert.Equal(t, profileHeaders, profiles[0])
	assert.Equal(t, []string{"W-1", "36", "2010-01-01", "2012-12-01", "1000.00", "2000.00", "2.000000", "", "true"}, profiles[1])
	assert.Equal(t, "false", profiles[2][8])
	assert.Equal(t, "", profiles[2][6])

	path, err = w.WriteAggregate(AggregateFile, r.Aggregate)
	require.NoError(t, err)
	assert.Equal(t, [][]string{aggregateHeaders, {"2010-01-01", "1.50", "2.25", "2"}}, readCSV(t, path))

	path, err = w.WriteSeries(SeriesFile, r.Raw, r.Clipped, r.Clip, r.Split)
	require.NoError(t, err)
	rows := readCSV(t, path)
	require.Len(t, rows, 37)
	assert.Equal(t, "5000.00", rows[21][1])
	assert.Equal(t, "true", rows[21][3])
	assert.NotEqual(t, rows[21][1], rows[21][2])
	assert.Equal(t, "training", rows[30][4])
	assert.Equal(t, "testing", rows[31][4])

	path, err = w.WriteAccuracy(AccuracyFile, *r.Accuracy)
	require.NoError(t, err)
	rows = readCSV(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, accuracyHeaders, rows[0])
	assert.Equal(t, []string{"ridge", "ridge", "train"}, rows[1][:3])
	assert.Equal(t, "6", rows[2][3])
	assert.Equal(t, "too_big", rows[3][0])
	assert.NotEmpty(t, rows[3][len(rows[3])-1])

	path, err = w.WriteForecasts(ForecastFile, *r.Forecasts)
	require.NoError(t, err)
	rows = readCSV(t, path)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"ridge", "ridge", "2013-01-01"}, rows[1][:3])
	assert.Equal(t, "0.950000", rows[1][6])

	path, err = w.WriteCVPlan(CVPlanFile, r.Folds)
	require.NoError(t, err)
	rows = readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "2010-01-01", "2012-03-01", "2012-04-01", "2012-09-01", "27", "6"}, rows[1])
	assert.Equal(t, []string{"2", "2010-01-01", "2012-06-01", "2012-07-01", "2012-12-01", "30", "6"}, rows[2])

	path, err = w.WriteCVScores(CVScoresFile, *r.CV)
	require.NoError(t, err)
	rows = readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, cvScoreHeaders, rows[0])
}

func TestWriteJSON(t *testing.T) {
	r := testReport(t)
	path := filepath.Join(t.TempDir(), SummaryFile)
	require.NoError(t, WriteJSON(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "oil", got["target"])

	counts := got["counts"].(map[string]interface{})
	assert.Equal(t, float64(72), counts["records"])

	split := got["split"].(map[string]interface{})
	assert.Equal(t, float64(30), split["training"])
	assert.Equal(t, float64(6), split["testing"])

	clip := got["clip"].(map[string]interface{})
	assert.Equal(t, float64(1), clip["replaced"])

	forecasts := got["forecasts"].([]interface{})
	require.Len(t, forecasts, 2)
	ridge := forecasts[0].(map[string]interface{})
	assert.Len(t, ridge["points"], 6)
	assert.Contains(t, ridge["params"], "lambda")
	failed := forecasts[1].(map[string]interface{})
	assert.NotEmpty(t, failed["error"])
	assert.Nil(t, failed["points"])

	// the failed model has undefined metrics which must be null, not NaN
	accuracy := got["accuracy"].(map[string]interface{})
	entries := accuracy["entries"].([]interface{})
	require.Len(t, entries, 2)
	test := entries[1].(map[string]interface{})["test"].(map[string]interface{})
	assert.Nil(t, test["rmse"])
}

func TestFiniteParams(t *testing.T) {
	got := finiteParams(map[string]float64{"a": 1, "b": math.NaN(), "c": math.Inf(-1)})
	assert.Equal(t, map[string]float64{"a": 1}, got)
}

func TestWriteWorkbook(t *testing.T) {
	r := testReport(t)
	path := filepath.Join(t.TempDir(), WorkbookFile)
	require.NoError(t, WriteWorkbook(path, r))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SeriesSheet, AccuracySheet, ForecastSheet, ChartSheet}, f.GetSheetList())

	rows, err := f.GetRows(SeriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 37)
	assert.Equal(t, []string{"date", "raw", "clipped", "replaced", "partition"}, rows[0])
	assert.Equal(t, "2010-01-01", rows[1][0])

	rows, err = f.GetRows(ForecastSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 7)

	rows, err = f.GetRows(ChartSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "observed", "ridge"}, rows[0])
	// 36 observed months then 6 forecast months
	assert.Len(t, rows, 43)
}

func TestNewChartData(t *testing.T) {
	r := testReport(t)
	d := newChartData(r)

	require.Len(t, d.dates, 42)
	assert.Equal(t, []string{"observed", "ridge"}, d.names)
	// the forecast line starts at the last observation
	assert.Equal(t, d.values[35][0], d.values[35][1])
	assert.Nil(t, d.values[36][0])
	assert.NotNil(t, d.values[36][1])
	assert.Nil(t, d.values[0][1])
}

func TestWritePDF(t *testing.T) {
	r := testReport(t)
	path := filepath.Join(t.TempDir(), PDFFile)
	require.NoError(t, WritePDF(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderHTMLChart(t *testing.T) {
	r := testReport(t)
	r.Title = "Oil <forecast>"

	var buf bytes.Buffer
	require.NoError(t, RenderHTMLChart(&buf, r, 900, 500))
	page := buf.String()

	assert.Contains(t, page, `<svg xmlns="http://www.w3.org/2000/svg" width="900" height="500"`)
	assert.Contains(t, page, "Oil &lt;forecast&gt;")
	// observed, ridge, ridge lower and ridge upper
	assert.Equal(t, 4, strings.Count(page, "<polyline"))
	assert.Equal(t, 2, strings.Count(page, `class="band"`))
	assert.Contains(t, page, "2011-01")
}

func TestNewPlot(t *testing.T) {
	r := testReport(t)
	p := newPlot(r)
	require.False(t, p.Empty())
	require.Len(t, p.Lines, 4)

	assert.Equal(t, unixDays(start), p.XMin)
	assert.Equal(t, unixDays(start.AddDate(0, 41, 0)), p.XMax)

	x, y := p.scale(p.XMin, p.YMin, 100, 50)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
	x, y = p.scale(p.XMax, p.YMax, 100, 50)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	ticks := p.xTicks()
	assert.Equal(t, start, ticks[0])
	assert.Len(t, ticks, 4)

	assert.True(t, newPlot(&Report{}).Empty())
}

func TestRGBHex(t *testing.T) {
	assert.Equal(t, "#1f77b4", RGB{31, 119, 180}.Hex())
	assert.Equal(t, "#000000", RGB{}.Hex())
}

func TestWriter_WriteAll(t *testing.T) {
	r := testReport(t)
	dir := t.TempDir()
	render := config.Default().Render
	render.PNG = false

	w := NewWriter(&config.Paths{OutputDir: dir}, render, infrastructure.NewLogger(&bytes.Buffer{}, "error"))
	files, err := w.WriteAll(context.Background(), r)
	require.NoError(t, err)

	want := []string{
		ProfilesFile, AggregateFile, SeriesFile, AccuracyFile, ForecastFile, CVPlanFile, CVScoresFile,
		SummaryFile, WorkbookFile, PDFFile, ChartFile,
	}
	require.Len(t, files, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), files[i])
		assert.FileExists(t, files[i])
	}
}

func TestWriter_WriteAllPrefixed(t *testing.T) {
	r := testReport(t)
	r.Prefix = "W/1"
	dir := t.TempDir()

	render := config.RenderConfig{CSV: true, JSON: true}
	w := NewWriter(&config.Paths{OutputDir: dir}, render, infrastructure.NewLogger(&bytes.Buffer{}, "error"))
	files, err := w.WriteAll(context.Background(), r)
	require.NoError(t, err)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(filepath.Base(f), "W_1_"), f)
	}
	assert.FileExists(t, filepath.Join(dir, "W_1_"+SummaryFile))
	assert.NoFileExists(t, filepath.Join(dir, "W_1_"+PDFFile))
}

func TestSnapshot(t *testing.T) {
	if os.Getenv("WELLCAST_CHROME_TESTS") == "" {
		t.Skip("set WELLCAST_CHROME_TESTS to run headless Chrome tests")
	}
	r := testReport(t)
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, ChartFile)
	pngPath := filepath.Join(dir, SnapshotFile)
	require.NoError(t, WriteHTMLChart(htmlPath, r, 800, 450))

	err := Snapshot(context.Background(), htmlPath, pngPath, SnapshotOptions{
		Width: 800, Height: 450, Timeout: 30 * time.Second, Headless: true,
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestSnapshot_MissingPage(t *testing.T) {
	err := Snapshot(context.Background(), filepath.Join(t.TempDir(), "none.html"), "out.png", SnapshotOptions{}, nil)
	assert.Error(t, err)
}
