package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/models"
	"wellcast/internal/production"
	"wellcast/internal/series"
	"wellcast/internal/wells"
)

// Settings parameterise a per-well forecast
type Settings struct {
	Target        string
	Cutoff        time.Time // zero disables the date cut
	IQRMultiplier float64
	TestFraction  float64
	Horizon       int
	Confidence    float64
	// Models are evaluated on the split; ForecastModels are refit on the
	// whole series, defaulting to Models when empty
	Models         []models.Model
	ForecastModels []models.Model
}

// SettingsFrom derives per-well settings from the run configuration
func SettingsFrom(cfg *config.Config) (Settings, error) {
	ms, err := models.FromConfig(cfg.Models)
	if err != nil {
		return Settings{}, err
	}
	fms, err := models.FromConfig(cfg.ForecastModels())
	if err != nil {
		return Settings{}, err
	}
	cutoff, _ := cfg.CutoffDate()
	return Settings{
		Target:         cfg.Pipeline.Target,
		Cutoff:         cutoff,
		IQRMultiplier:  cfg.Pipeline.IQRMultiplier,
		TestFraction:   cfg.Pipeline.WellTestFraction,
		Horizon:        cfg.Forecast.Horizon,
		Confidence:     cfg.Forecast.Confidence,
		Models:         ms,
		ForecastModels: fms,
	}, nil
}

// WellForecast is everything computed for one well. Rendering it is left
// to the exporters.
type WellForecast struct {
	WellID    string            `json:"well_id"`
	Raw       series.Series     `json:"raw"`
	Series    series.Series     `json:"series"`
	Clip      series.ClipReport `json:"clip"`
	Split     series.SplitPlan  `json:"-"`
	Accuracy  evaluation.Report `json:"accuracy"`
	Forecasts Set               `json:"forecasts"`
}

// ForecastWell runs the per-well pipeline with default logging
func ForecastWell(ctx context.Context, wellID string, records []production.Record, settings Settings) (*WellForecast, error) {
	return New(nil, nil).ForecastWell(ctx, wellID, records, settings)
}

// ForecastWell selects the well's target series from the cleaned records,
// applies the date cut, clips outliers, evaluates on a fractional split and
// refits on the clipped series
func (f *Forecaster) ForecastWell(ctx context.Context, wellID string, records []production.Record, settings Settings) (*WellForecast, error) {
	raw, err := wells.WellSeries(records, wellID, settings.Target)
	if err != nil {
		return nil, err
	}
	if !settings.Cutoff.IsZero() {
		raw = series.From(raw, settings.Cutoff)
	}

	clipped, report, err := series.Clip(raw, settings.IQRMultiplier)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", wellID, err)
	}

	plan, err := series.SplitFraction(clipped, settings.TestFraction)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", wellID, err)
	}

	accuracy, err := f.evaluator.Evaluate(ctx, settings.Models, plan, settings.Confidence)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", wellID, err)
	}

	refit := settings.ForecastModels
	if len(refit) == 0 {
		refit = settings.Models
	}
	set, err := f.Refit(ctx, refit, clipped, settings.Horizon, settings.Confidence)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", wellID, err)
	}

	f.logger.InfoContext(ctx, "well forecast completed",
		slog.String("well_id", wellID),
		slog.Int("periods", clipped.Len()),
		slog.Int("outliers_replaced", report.Replaced),
		slog.Int("test_window", plan.Window()))

	return &WellForecast{
		WellID:    wellID,
		Raw:       raw,
		Series:    clipped,
		Clip:      report,
		Split:     plan,
		Accuracy:  accuracy,
		Forecasts: set,
	}, nil
}
