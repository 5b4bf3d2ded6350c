package exporter

import (
	"time"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/forecast"
	"wellcast/internal/series"
	"wellcast/internal/stationarity"
	"wellcast/internal/wells"
)

// Counts summarise the record set of a run
type Counts struct {
	Records  int `json:"records"`
	Wells    int `json:"wells"`
	Eligible int `json:"eligible"`
	Dropped  int `json:"dropped"`
}

// Report is everything a run produced. Nil and empty sections are skipped
// by the writers.
type Report struct {
	RunID       string
	Prefix      string // well id for per-well runs
	Title       string
	Target      string
	Input       string
	GeneratedAt time.Time
	Counts      Counts

	Profiles  []wells.Profile
	Eligible  []string
	Aggregate []wells.AggregateRow

	Raw       series.Series
	Clipped   series.Series
	Clip      *series.ClipReport
	Diagnosis *stationarity.Diagnosis
	Split     *series.SplitPlan

	Accuracy  *evaluation.Report
	Folds     []evaluation.Fold
	CV        *evaluation.CVReport
	Forecasts *forecast.Set

	Config *config.Config
}

// history is the series charted as observed data
func (r *Report) history() series.Series {
	if !r.Clipped.Empty() {
		return r.Clipped
	}
	return r.Raw
}

func (r *Report) title() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Prefix != "" {
		return "Well " + r.Prefix + " " + r.Target + " forecast"
	}
	return "Aggregate " + r.Target + " forecast"
}
