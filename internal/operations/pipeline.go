package operations

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/exporter"
	"wellcast/internal/forecast"
	"wellcast/internal/infrastructure"
	"wellcast/internal/models"
)

// Dependencies are the shared services the pipeline steps are built from
type Dependencies struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
}

func (d Dependencies) validate() error {
	if d.Config == nil {
		return NewFatalError("pipeline needs a configuration", nil)
	}
	if d.Paths == nil {
		return NewFatalError("pipeline needs output paths", nil)
	}
	return nil
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Dependencies) manager() *Manager {
	return NewManager(NewRegistry(), d.logger(), d.Tracer, d.Metrics)
}

func (d Dependencies) writer() *exporter.Writer {
	return exporter.NewWriter(d.Paths, d.Config.Render, d.logger())
}

func (d Dependencies) buildModels() (evaluate, refit []models.Model, err error) {
	evaluate, err = models.FromConfig(d.Config.Models)
	if err != nil {
		return nil, nil, err
	}
	refit, err = models.FromConfig(d.Config.ForecastModels())
	if err != nil {
		return nil, nil, err
	}
	return evaluate, refit, nil
}

func register(m *Manager, steps ...Step) error {
	for _, s := range steps {
		if err := m.RegisterStep(s); err != nil {
			return NewFatalError("failed to register step", err)
		}
	}
	return nil
}

// NewAggregatePipeline builds the full run: load, select, aggregate, cut,
// clip, diagnose, split, evaluate, cross-validate, forecast and export
func NewAggregatePipeline(deps Dependencies) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	logger := deps.logger()

	evalModels, refitModels, err := deps.buildModels()
	if err != nil {
		return nil, fmt.Errorf("failed to build models: %w", err)
	}

	runner := evaluation.NewRunner(logger, deps.Tracer, deps.Metrics)
	evaluator := evaluation.NewEvaluator(logger, runner)
	forecaster := forecast.New(logger, runner)

	m := deps.manager()
	err = register(m,
		NewLoadStep(logger, deps.Metrics),
		NewSelectStep(cfg.Pipeline.MinMonths, logger, deps.Metrics),
		NewAggregateStep(cfg.Pipeline.Target),
		NewCutoffStep(cfg),
		NewClipStep(cfg.Pipeline.IQRMultiplier, deps.Metrics),
		NewStationarityStep(cfg.Pipeline.ADFMaxLag, logger),
		NewSplitStep(cfg.Pipeline.TestWindow),
		NewEvaluateStep(evaluator, evalModels, cfg.Forecast.Confidence),
		NewCrossValidateStep(evaluator, evalModels, cfg, logger),
		NewForecastStep(forecaster, refitModels, cfg.Forecast.Horizon, cfg.Forecast.Confidence),
		NewExportStep(deps.writer(), cfg),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewWellPipeline builds a per-well run: load, select, forecast the well
// named by RunState.WellID, diagnose and export
func NewWellPipeline(deps Dependencies) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	logger := deps.logger()

	settings, err := forecast.SettingsFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build models: %w", err)
	}
	runner := evaluation.NewRunner(logger, deps.Tracer, deps.Metrics)
	forecaster := forecast.New(logger, runner)

	m := deps.manager()
	err = register(m,
		NewLoadStep(logger, deps.Metrics),
		NewSelectStep(cfg.Pipeline.MinMonths, logger, deps.Metrics),
		NewWellForecastStep(forecaster, settings),
		NewStationarityStep(cfg.Pipeline.ADFMaxLag, logger),
		NewExportStep(deps.writer(), cfg),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewProfilePipeline builds a run that only profiles wells and writes the
// profile table
func NewProfilePipeline(deps Dependencies) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.logger()
	render := config.RenderConfig{CSV: true}

	m := deps.manager()
	err := register(m,
		NewLoadStep(logger, deps.Metrics),
		NewSelectStep(deps.Config.Pipeline.MinMonths, logger, deps.Metrics),
		NewExportStep(exporter.NewWriter(deps.Paths, render, logger), deps.Config),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
