package forecast

import (
	"context"
	"log/slog"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/evaluation"
	"wellcast/internal/models"
	"wellcast/internal/series"
)

// Outcome is one model's refit forecast, or the reason it failed
type Outcome struct {
	ModelName string                 `json:"model"`
	Kind      models.Kind            `json:"kind"`
	Result    *models.ForecastResult `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Err       error                  `json:"-"`
}

// Set holds the forecasts of every refit model, in model order
type Set struct {
	Horizon    int       `json:"horizon"`
	Confidence float64   `json:"confidence"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Successful returns the results of the models that produced a forecast
func (s Set) Successful() []models.ForecastResult {
	var out []models.ForecastResult
	for _, o := range s.Outcomes {
		if o.Err == nil && o.Result != nil {
			out = append(out, *o.Result)
		}
	}
	return out
}

// Forecaster refits models on a full series and projects them forward
type Forecaster struct {
	logger    *slog.Logger
	runner    *evaluation.Runner
	evaluator *evaluation.Evaluator
}

// New creates a Forecaster sharing runner with its evaluator
func New(logger *slog.Logger, runner *evaluation.Runner) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = evaluation.NewRunner(logger, nil, nil)
	}
	return &Forecaster{
		logger:    logger,
		runner:    runner,
		evaluator: evaluation.NewEvaluator(logger, runner),
	}
}

// Refit forecasts with default logging and no metrics
func Refit(ctx context.Context, ms []models.Model, s series.Series, horizon int, level float64) (Set, error) {
	return New(nil, nil).Refit(ctx, ms, s, horizon, level)
}

// Refit fits every model on the whole series and forecasts horizon periods
// after its last date. Failing models are recorded, not fatal.
func (f *Forecaster) Refit(ctx context.Context, ms []models.Model, s series.Series, horizon int, level float64) (Set, error) {
	if s.Empty() {
		return Set{}, apierrors.EmptySeries("forecast")
	}
	if horizon < 1 {
		return Set{}, apierrors.InvalidInput("forecast", "horizon must be at least 1")
	}

	set := Set{Horizon: horizon, Confidence: level}
	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}
		outcome := Outcome{ModelName: m.Name(), Kind: m.Kind()}
		_, res, err := f.runner.Run(ctx, m, s, horizon, level)
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
		} else {
			outcome.Result = &res
		}
		set.Outcomes = append(set.Outcomes, outcome)
	}

	f.logger.InfoContext(ctx, "forecast completed",
		slog.String("series", s.Name),
		slog.Int("models", len(ms)),
		slog.Int("succeeded", len(set.Successful())),
		slog.Int("horizon", horizon))
	return set, nil
}
