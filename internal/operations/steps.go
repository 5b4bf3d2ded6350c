package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"wellcast/internal/config"
	apierrors "wellcast/internal/errors"
	"wellcast/internal/evaluation"
	"wellcast/internal/exporter"
	"wellcast/internal/forecast"
	"wellcast/internal/infrastructure"
	"wellcast/internal/models"
	"wellcast/internal/production"
	"wellcast/internal/series"
	"wellcast/internal/stationarity"
	"wellcast/internal/wells"
)

// Step IDs
const (
	StepLoad          = "load"
	StepSelect        = "select"
	StepAggregate     = "aggregate"
	StepCutoff        = "cutoff"
	StepClip          = "clip"
	StepStationarity  = "stationarity"
	StepSplit         = "split"
	StepEvaluate      = "evaluate"
	StepCrossValidate = "cross_validate"
	StepForecast      = "forecast"
	StepWellForecast  = "well_forecast"
	StepExport        = "export"
)

var errMissing = errors.New("missing input from an earlier step")

func missing(what string) error {
	return fmt.Errorf("%w: %s", errMissing, what)
}

// LoadStep reads production records from the run's input file
type LoadStep struct {
	BaseStep
	loader  *production.Loader
	metrics *infrastructure.PipelineMetrics
}

// NewLoadStep creates the load step
func NewLoadStep(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *LoadStep {
	return &LoadStep{
		BaseStep: NewBaseStep(StepLoad, "Load production records"),
		loader:   production.NewLoader(logger),
		metrics:  metrics,
	}
}

// Validate requires an input path
func (s *LoadStep) Validate(state *RunState) error {
	if state.Input == "" {
		return apierrors.InvalidInput("load", "no input file given")
	}
	return nil
}

// Execute loads and stores the records
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	records, err := s.loader.Load(ctx, state.Input)
	if err != nil {
		return err
	}
	state.Records = records
	if s.metrics != nil {
		infrastructure.AddCount(ctx, s.metrics.RecordsLoaded, len(records))
	}
	return nil
}

// SelectStep profiles every well and keeps the eligible ones
type SelectStep struct {
	BaseStep
	minMonths int
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
}

// NewSelectStep creates the profiling and eligibility step
func NewSelectStep(minMonths int, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *SelectStep {
	return &SelectStep{
		BaseStep:  NewBaseStep(StepSelect, "Profile wells and filter eligibility"),
		minMonths: minMonths,
		logger:    logger,
		metrics:   metrics,
	}
}

// Validate requires loaded records
func (s *SelectStep) Validate(state *RunState) error {
	if state.Records == nil {
		return missing("records")
	}
	return nil
}

// Execute stores the well selection
func (s *SelectStep) Execute(ctx context.Context, state *RunState) error {
	sel := wells.Select(state.Records, s.minMonths)
	state.Selection = &sel
	if s.metrics != nil {
		infrastructure.AddCount(ctx, s.metrics.WellsEligible, len(sel.Eligible))
	}
	s.logger.InfoContext(ctx, "wells selected",
		slog.Int("wells", len(sel.Profiles)),
		slog.Int("eligible", len(sel.Eligible)),
		slog.Int("records_kept", len(sel.Records)),
		slog.Int("records_dropped", sel.Dropped))
	return nil
}

// AggregateStep sums the eligible records per period and extracts the
// target series
type AggregateStep struct {
	BaseStep
	target string
}

// NewAggregateStep creates the aggregation step
func NewAggregateStep(target string) *AggregateStep {
	return &AggregateStep{
		BaseStep: NewBaseStep(StepAggregate, "Aggregate eligible wells"),
		target:   target,
	}
}

// Validate requires a selection
func (s *AggregateStep) Validate(state *RunState) error {
	if state.Selection == nil {
		return missing("well selection")
	}
	return nil
}

// Execute stores the aggregate rows and the target series
func (s *AggregateStep) Execute(ctx context.Context, state *RunState) error {
	rows := wells.Aggregate(state.Selection.Records)
	if len(rows) == 0 {
		return apierrors.EmptySeries("aggregate")
	}
	raw, err := wells.AggregateSeries(rows, s.target)
	if err != nil {
		return err
	}
	state.Aggregate = rows
	state.Raw = raw
	return nil
}

// CutoffStep keeps periods on or after the configured anchor date
type CutoffStep struct {
	BaseStep
	cfg *config.Config
}

// NewCutoffStep creates the date range step
func NewCutoffStep(cfg *config.Config) *CutoffStep {
	return &CutoffStep{
		BaseStep: NewBaseStep(StepCutoff, "Select date range"),
		cfg:      cfg,
	}
}

// Validate requires a series
func (s *CutoffStep) Validate(state *RunState) error {
	if state.Raw.Empty() {
		return missing("target series")
	}
	return nil
}

// Execute replaces the raw series with its cut
func (s *CutoffStep) Execute(ctx context.Context, state *RunState) error {
	cutoff, ok := s.cfg.CutoffDate()
	if !ok {
		return nil
	}
	cut := series.From(state.Raw, cutoff)
	if cut.Empty() {
		return apierrors.InvalidInput("cutoff",
			fmt.Sprintf("no periods on or after %s", cutoff.Format("2006-01-02")))
	}
	state.Raw = cut
	return nil
}

// ClipStep replaces IQR outliers with the median
type ClipStep struct {
	BaseStep
	multiplier float64
	metrics    *infrastructure.PipelineMetrics
}

// NewClipStep creates the outlier clipping step
func NewClipStep(multiplier float64, metrics *infrastructure.PipelineMetrics) *ClipStep {
	return &ClipStep{
		BaseStep:   NewBaseStep(StepClip, "Clip outliers"),
		multiplier: multiplier,
		metrics:    metrics,
	}
}

// Validate requires a series
func (s *ClipStep) Validate(state *RunState) error {
	if state.Raw.Empty() {
		return missing("target series")
	}
	return nil
}

// Execute stores the clipped series and the fences used
func (s *ClipStep) Execute(ctx context.Context, state *RunState) error {
	clipped, report, err := series.Clip(state.Raw, s.multiplier)
	if err != nil {
		return err
	}
	state.Clipped = clipped
	state.Clip = &report
	if s.metrics != nil {
		infrastructure.AddCount(ctx, s.metrics.OutliersReplaced, report.Replaced,
			attribute.String("series", clipped.Name))
	}
	return nil
}

// StationarityStep runs the ADF diagnostic. It never fails the run: a
// series too short to test is logged and left undiagnosed.
type StationarityStep struct {
	BaseStep
	maxLag int
	logger *slog.Logger
}

// NewStationarityStep creates the diagnostic step
func NewStationarityStep(maxLag int, logger *slog.Logger) *StationarityStep {
	return &StationarityStep{
		BaseStep: NewBaseStep(StepStationarity, "Stationarity check"),
		maxLag:   maxLag,
		logger:   logger,
	}
}

// Validate requires a clipped series
func (s *StationarityStep) Validate(state *RunState) error {
	if state.Clipped.Empty() {
		return missing("clipped series")
	}
	return nil
}

// Execute stores the diagnosis
func (s *StationarityStep) Execute(ctx context.Context, state *RunState) error {
	diag, err := stationarity.Check(state.Clipped, s.maxLag)
	if err != nil {
		s.logger.WarnContext(ctx, "stationarity check skipped",
			slog.Int("points", state.Clipped.Len()),
			slog.String("error", err.Error()))
		return nil
	}
	state.Diagnosis = &diag
	s.logger.InfoContext(ctx, "stationarity checked",
		slog.Float64("adf_statistic", diag.Level.Statistic),
		slog.Float64("p_value", diag.Level.PValue),
		slog.Bool("stationary", diag.Level.Stationary),
		slog.Int("suggested_d", diag.SuggestedD))
	return nil
}

// SplitStep holds out the trailing test window
type SplitStep struct {
	BaseStep
	window int
}

// NewSplitStep creates the split step
func NewSplitStep(window int) *SplitStep {
	return &SplitStep{
		BaseStep: NewBaseStep(StepSplit, "Split training and testing"),
		window:   window,
	}
}

// Validate requires a clipped series
func (s *SplitStep) Validate(state *RunState) error {
	if state.Clipped.Empty() {
		return missing("clipped series")
	}
	return nil
}

// Execute stores the split plan
func (s *SplitStep) Execute(ctx context.Context, state *RunState) error {
	plan, err := series.SplitCount(state.Clipped, s.window)
	if err != nil {
		return err
	}
	state.Split = &plan
	return nil
}

// EvaluateStep scores every configured model on the split
type EvaluateStep struct {
	BaseStep
	evaluator *evaluation.Evaluator
	models    []models.Model
	level     float64
}

// NewEvaluateStep creates the evaluation step
func NewEvaluateStep(evaluator *evaluation.Evaluator, ms []models.Model, level float64) *EvaluateStep {
	return &EvaluateStep{
		BaseStep:  NewBaseStep(StepEvaluate, "Evaluate models"),
		evaluator: evaluator,
		models:    ms,
		level:     level,
	}
}

// Validate requires a split
func (s *EvaluateStep) Validate(state *RunState) error {
	if state.Split == nil {
		return missing("split plan")
	}
	return nil
}

// Execute stores the accuracy report
func (s *EvaluateStep) Execute(ctx context.Context, state *RunState) error {
	report, err := s.evaluator.Evaluate(ctx, s.models, *state.Split, s.level)
	if err != nil {
		return err
	}
	state.Accuracy = &report
	return nil
}

// CrossValidateStep scores the models over rolling-origin folds. Zero
// folds disables it, and a series too short for the plan is logged and
// skipped.
type CrossValidateStep struct {
	BaseStep
	evaluator *evaluation.Evaluator
	models    []models.Model
	folds     int
	window    int
	skip      int
	level     float64
	logger    *slog.Logger
}

// NewCrossValidateStep creates the cross-validation step
func NewCrossValidateStep(evaluator *evaluation.Evaluator, ms []models.Model, cfg *config.Config, logger *slog.Logger) *CrossValidateStep {
	return &CrossValidateStep{
		BaseStep:  NewBaseStep(StepCrossValidate, "Cross-validate models"),
		evaluator: evaluator,
		models:    ms,
		folds:     cfg.Pipeline.CVFolds,
		window:    cfg.Pipeline.TestWindow,
		skip:      cfg.Pipeline.CVSkip,
		level:     cfg.Forecast.Confidence,
		logger:    logger,
	}
}

// Validate requires a clipped series
func (s *CrossValidateStep) Validate(state *RunState) error {
	if state.Clipped.Empty() {
		return missing("clipped series")
	}
	return nil
}

// Execute stores the fold plan and scores
func (s *CrossValidateStep) Execute(ctx context.Context, state *RunState) error {
	if s.folds == 0 {
		return nil
	}
	folds, err := evaluation.RollingOrigin(state.Clipped, s.folds, s.window, s.skip)
	if err != nil {
		if apierrors.IsKind(err, apierrors.KindInvalidInput) {
			s.logger.WarnContext(ctx, "cross-validation skipped", slog.String("error", err.Error()))
			return nil
		}
		return err
	}
	report, err := s.evaluator.CrossValidate(ctx, s.models, folds, s.level)
	if err != nil {
		return err
	}
	state.Folds = folds
	state.CV = &report
	return nil
}

// ForecastStep refits the forecast models on the whole clipped series
type ForecastStep struct {
	BaseStep
	forecaster *forecast.Forecaster
	models     []models.Model
	horizon    int
	level      float64
}

// NewForecastStep creates the refit and forecast step
func NewForecastStep(forecaster *forecast.Forecaster, ms []models.Model, horizon int, level float64) *ForecastStep {
	return &ForecastStep{
		BaseStep:   NewBaseStep(StepForecast, "Refit and forecast"),
		forecaster: forecaster,
		models:     ms,
		horizon:    horizon,
		level:      level,
	}
}

// Validate requires a clipped series
func (s *ForecastStep) Validate(state *RunState) error {
	if state.Clipped.Empty() {
		return missing("clipped series")
	}
	return nil
}

// Execute stores the forecast set
func (s *ForecastStep) Execute(ctx context.Context, state *RunState) error {
	set, err := s.forecaster.Refit(ctx, s.models, state.Clipped, s.horizon, s.level)
	if err != nil {
		return err
	}
	state.Forecasts = &set
	return nil
}

// WellForecastStep runs the per-well pipeline for state.WellID on the
// eligible records
type WellForecastStep struct {
	BaseStep
	forecaster *forecast.Forecaster
	settings   forecast.Settings
}

// NewWellForecastStep creates the per-well forecast step
func NewWellForecastStep(forecaster *forecast.Forecaster, settings forecast.Settings) *WellForecastStep {
	return &WellForecastStep{
		BaseStep:   NewBaseStep(StepWellForecast, "Forecast well"),
		forecaster: forecaster,
		settings:   settings,
	}
}

// Validate requires a well id and a selection
func (s *WellForecastStep) Validate(state *RunState) error {
	if state.WellID == "" {
		return apierrors.InvalidInput("well forecast", "no well id given")
	}
	if state.Selection == nil {
		return missing("well selection")
	}
	return nil
}

// Execute stores the well's series, accuracy and forecasts
func (s *WellForecastStep) Execute(ctx context.Context, state *RunState) error {
	wf, err := s.forecaster.ForecastWell(ctx, state.WellID, state.Selection.Records, s.settings)
	if err != nil {
		return err
	}
	state.Raw = wf.Raw
	state.Clipped = wf.Series
	state.Clip = &wf.Clip
	state.Split = &wf.Split
	state.Accuracy = &wf.Accuracy
	state.Forecasts = &wf.Forecasts
	return nil
}

// ExportStep writes the run's artifacts
type ExportStep struct {
	BaseStep
	writer *exporter.Writer
	cfg    *config.Config
}

// NewExportStep creates the export step
func NewExportStep(writer *exporter.Writer, cfg *config.Config) *ExportStep {
	return &ExportStep{
		BaseStep: NewBaseStep(StepExport, "Export artifacts"),
		writer:   writer,
		cfg:      cfg,
	}
}

// Execute renders the report and records the written paths
func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	files, err := s.writer.WriteAll(ctx, state.Report(s.cfg))
	state.Artifacts = append(state.Artifacts, files...)
	return err
}
