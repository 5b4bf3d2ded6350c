package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/series"
	"wellcast/internal/stationarity"
)

// Summary is the JSON view of a run. Undefined numbers are written as null.
type Summary struct {
	RunID           string                  `json:"run_id"`
	WellID          string                  `json:"well_id,omitempty"`
	Target          string                  `json:"target"`
	Input           string                  `json:"input,omitempty"`
	GeneratedAt     time.Time               `json:"generated_at"`
	Counts          Counts                  `json:"counts"`
	Series          *SeriesSummary          `json:"series,omitempty"`
	Clip            *series.ClipReport      `json:"clip,omitempty"`
	Stationarity    *stationarity.Diagnosis `json:"stationarity,omitempty"`
	Split           *SplitSummary           `json:"split,omitempty"`
	Accuracy        *evaluation.Report      `json:"accuracy,omitempty"`
	CrossValidation []evaluation.CVSummary  `json:"cross_validation,omitempty"`
	Forecasts       []ForecastSummary       `json:"forecasts,omitempty"`
	Config          *config.Config          `json:"config,omitempty"`
}

// SeriesSummary describes the modelled series
type SeriesSummary struct {
	Name   string    `json:"name"`
	Points int       `json:"points"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// SplitSummary describes the train/test partition
type SplitSummary struct {
	Training  int       `json:"training"`
	Testing   int       `json:"testing"`
	TestStart time.Time `json:"test_start"`
}

// ForecastSummary is one model's refit forecast
type ForecastSummary struct {
	Model      string             `json:"model"`
	Kind       string             `json:"kind"`
	Error      string             `json:"error,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
	Points     []ForecastPoint    `json:"points,omitempty"`
}

// ForecastPoint is a dated forecast with its interval
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// NewSummary collects the JSON view of r
func NewSummary(r *Report) Summary {
	s := Summary{
		RunID:        r.RunID,
		WellID:       r.Prefix,
		Target:       r.Target,
		Input:        r.Input,
		GeneratedAt:  r.GeneratedAt,
		Counts:       r.Counts,
		Clip:         r.Clip,
		Stationarity: r.Diagnosis,
		Accuracy:     r.Accuracy,
		Config:       r.Config,
	}

	if h := r.history(); !h.Empty() {
		s.Series = &SeriesSummary{Name: h.Name, Points: h.Len(), First: h.First().Date, Last: h.Last().Date}
	}
	if r.Split != nil && !r.Split.Testing.Empty() {
		s.Split = &SplitSummary{
			Training:  r.Split.Training.Len(),
			Testing:   r.Split.Testing.Len(),
			TestStart: r.Split.Testing.First().Date,
		}
	}
	if r.CV != nil {
		s.CrossValidation = r.CV.Summary
	}
	if r.Forecasts != nil {
		for _, o := range r.Forecasts.Outcomes {
			fs := ForecastSummary{Model: o.ModelName, Kind: string(o.Kind), Error: o.Error}
			if o.Result != nil {
				fs.Confidence = o.Result.Confidence
				fs.Params = finiteParams(o.Result.Params)
				for i, p := range o.Result.Point.Points {
					fs.Points = append(fs.Points, ForecastPoint{
						Date:  p.Date,
						Value: p.Value,
						Lower: o.Result.Lower.Points[i].Value,
						Upper: o.Result.Upper.Points[i].Value,
					})
				}
			}
			s.Forecasts = append(s.Forecasts, fs)
		}
	}
	return s
}

// WriteJSON writes the run summary as indented JSON
func WriteJSON(path string, r *Report) error {
	data, err := json.MarshalIndent(NewSummary(r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// finiteParams drops parameters JSON cannot represent
func finiteParams(params map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(params))
	for k, v := range params {
		if finite(v) {
			out[k] = v
		}
	}
	return out
}
