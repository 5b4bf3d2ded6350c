package evaluation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wellcast/internal/infrastructure"
	"wellcast/internal/models"
	"wellcast/internal/series"
)

// Runner fits a model and forecasts from it inside one span, recording the
// outcome on the pipeline metrics
type Runner struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewRunner creates a Runner. A nil logger uses slog.Default, a nil tracer
// the global provider, and nil metrics disables recording.
func NewRunner(logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	return &Runner{logger: logger, tracer: tracer, metrics: metrics}
}

// Run fits m on s and forecasts h periods at the given confidence
func (r *Runner) Run(ctx context.Context, m models.Model, s series.Series, h int, level float64) (models.Fitted, models.ForecastResult, error) {
	ctx, span := r.tracer.Start(ctx, "model."+m.Name(),
		trace.WithAttributes(
			attribute.String("model.name", m.Name()),
			attribute.String("model.kind", string(m.Kind())),
			attribute.Int("series.length", s.Len()),
			attribute.Int("forecast.horizon", h),
		))
	defer span.End()

	start := time.Now()
	fitted, err := models.Fit(ctx, m, s)
	var res models.ForecastResult
	if err == nil {
		res, err = models.Forecast(fitted, h, level)
	}
	duration := time.Since(start)
	infrastructure.RecordModelFit(ctx, r.metrics, m.Name(), string(m.Kind()), duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		r.logger.WarnContext(ctx, "model failed",
			slog.String("model", m.Name()),
			slog.String("kind", string(m.Kind())),
			slog.String("error", err.Error()))
		return nil, models.ForecastResult{}, err
	}

	r.logger.DebugContext(ctx, "model fitted",
		slog.String("model", m.Name()),
		slog.Int("observations", s.Len()),
		slog.Duration("duration", duration))
	return fitted, res, nil
}
