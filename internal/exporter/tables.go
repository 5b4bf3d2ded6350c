package exporter

import (
	"fmt"

	"wellcast/internal/evaluation"
	"wellcast/internal/forecast"
	"wellcast/internal/series"
	"wellcast/internal/wells"
)

// Artifact file names. Per-well runs prefix them with the well id.
const (
	ProfilesFile  = "profiles.csv"
	AggregateFile = "aggregate.csv"
	SeriesFile    = "series_clipped.csv"
	AccuracyFile  = "accuracy.csv"
	ForecastFile  = "forecast.csv"
	CVPlanFile    = "cv_plan.csv"
	CVScoresFile  = "cv_scores.csv"
	SummaryFile   = "summary.json"
	WorkbookFile  = "report.xlsx"
	PDFFile       = "report.pdf"
	ChartFile     = "chart.html"
	SnapshotFile  = "chart.png"
)

var (
	profileHeaders = []string{
		"well_id", "months_of_production", "first_period", "last_period",
		"total_oil", "total_gas", "avg_gas_oil_ratio", "avg_monthly_gas_decline", "eligible",
	}
	aggregateHeaders = []string{"period", "oil", "gas", "wells"}
	seriesHeaders    = []string{"date", "raw", "clipped", "replaced", "partition"}
	accuracyHeaders  = metricHeaders("model", "kind", "partition")
	forecastHeaders  = []string{"model", "kind", "date", "forecast", "lower", "upper", "confidence"}
	cvPlanHeaders    = []string{"fold", "train_start", "train_end", "test_start", "test_end", "training_points", "testing_points"}
	cvScoreHeaders   = metricHeaders("fold", "model", "kind")
)

// WriteProfiles writes one row per well
func (c *CSVWriter) WriteProfiles(name string, profiles []wells.Profile, eligible []string) (string, error) {
	keep := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		keep[id] = true
	}

	records := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, []string{
			p.WellID,
			formatInt(p.MonthsOfProduction),
			formatDate(p.FirstPeriod),
			formatDate(p.LastPeriod),
			formatFloat(p.TotalOil),
			formatFloat(p.TotalGas),
			formatMetric(p.AvgGasOilRatio),
			formatMetric(p.AvgMonthlyGasDecline),
			formatBool(keep[p.WellID]),
		})
	}
	return c.WriteTable(Table{Name: name, Headers: profileHeaders, Rows: records})
}

// WriteAggregate streams the per-period totals
func (c *CSVWriter) WriteAggregate(name string, rows []wells.AggregateRow) (string, error) {
	rs, err := c.Stream(name, aggregateHeaders)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := rs.Write([]string{
			formatDate(row.Period),
			formatFloat(row.Oil),
			formatFloat(row.Gas),
			formatInt(row.Wells),
		}); err != nil {
			rs.Close()
			return "", fmt.Errorf("failed to write aggregate row: %w", err)
		}
	}
	if err := rs.Close(); err != nil {
		return "", err
	}
	return rs.Path(), nil
}

// WriteSeries writes the raw and clipped values side by side. The
// partition column marks the held-out window when a split is given.
func (c *CSVWriter) WriteSeries(name string, raw, clipped series.Series, clip *series.ClipReport, split *series.SplitPlan) (string, error) {
	replaced := make(map[int]bool)
	if clip != nil {
		for _, i := range clip.Indices {
			replaced[i] = true
		}
	}
	testStart := clipped.Len()
	if split != nil {
		testStart = split.Training.Len()
	}

	records := make([][]string, 0, clipped.Len())
	for i, p := range clipped.Points {
		rawValue := p.Value
		if i < raw.Len() {
			rawValue = raw.Points[i].Value
		}
		partition := "training"
		if i >= testStart {
			partition = "testing"
		}
		if split == nil {
			partition = ""
		}
		records = append(records, []string{
			formatDate(p.Date),
			formatFloat(rawValue),
			formatFloat(p.Value),
			formatBool(replaced[i]),
			partition,
		})
	}
	return c.WriteTable(Table{Name: name, Headers: seriesHeaders, Rows: records})
}

// WriteAccuracy writes a train and a test row per model
func (c *CSVWriter) WriteAccuracy(name string, report evaluation.Report) (string, error) {
	var records [][]string
	for _, e := range report.Entries {
		records = append(records,
			metricRow([]string{e.ModelName, string(e.Kind), "train"}, e.Train, e.Error),
			metricRow([]string{e.ModelName, string(e.Kind), "test"}, e.Test, e.Error),
		)
	}
	return c.WriteTable(Table{Name: name, Headers: accuracyHeaders, Rows: records})
}

// WriteForecasts writes one row per model and forecast date
func (c *CSVWriter) WriteForecasts(name string, set forecast.Set) (string, error) {
	var records [][]string
	for _, res := range set.Successful() {
		for i, p := range res.Point.Points {
			records = append(records, []string{
				res.ModelName,
				string(res.Kind),
				formatDate(p.Date),
				formatFloat(p.Value),
				formatFloat(res.Lower.Points[i].Value),
				formatFloat(res.Upper.Points[i].Value),
				formatMetric(res.Confidence),
			})
		}
	}
	return c.WriteTable(Table{Name: name, Headers: forecastHeaders, Rows: records})
}

// WriteCVPlan writes the date ranges of each rolling-origin fold
func (c *CSVWriter) WriteCVPlan(name string, folds []evaluation.Fold) (string, error) {
	records := make([][]string, 0, len(folds))
	for _, f := range folds {
		records = append(records, []string{
			formatInt(f.Index),
			formatDate(f.Training.First().Date),
			formatDate(f.Training.Last().Date),
			formatDate(f.Testing.First().Date),
			formatDate(f.Testing.Last().Date),
			formatInt(f.Training.Len()),
			formatInt(f.Testing.Len()),
		})
	}
	return c.WriteTable(Table{Name: name, Headers: cvPlanHeaders, Rows: records})
}

// WriteCVScores writes each model's test metrics per fold
func (c *CSVWriter) WriteCVScores(name string, report evaluation.CVReport) (string, error) {
	records := make([][]string, 0, len(report.Scores))
	for _, s := range report.Scores {
		records = append(records, metricRow([]string{formatInt(s.Fold), s.ModelName, string(s.Kind)}, s.Test, s.Error))
	}
	return c.WriteTable(Table{Name: name, Headers: cvScoreHeaders, Rows: records})
}

func metricHeaders(prefix ...string) []string {
	headers := append(append([]string(nil), prefix...), "n")
	headers = append(headers, evaluation.MetricNames...)
	return append(headers, "error")
}

func metricRow(prefix []string, m evaluation.Metrics, errText string) []string {
	row := append(append([]string(nil), prefix...), formatInt(m.N))
	for _, name := range evaluation.MetricNames {
		v, _ := m.Value(name)
		row = append(row, formatMetric(v))
	}
	return append(row, errText)
}
