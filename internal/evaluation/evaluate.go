package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/models"
	"wellcast/internal/series"
)

// Entry is one model's evaluation. Err is set when the model failed to fit
// or forecast; its metrics are then empty.
type Entry struct {
	ModelName string                 `json:"model"`
	Kind      models.Kind            `json:"kind"`
	Train     Metrics                `json:"train"`
	Test      Metrics                `json:"test"`
	Params    map[string]float64     `json:"params,omitempty"`
	Forecast  *models.ForecastResult `json:"-"`
	Error     string                 `json:"error,omitempty"`
	Err       error                  `json:"-"`
}

// OK reports whether the model was evaluated
func (e Entry) OK() bool { return e.Err == nil }

// Report holds per-model accuracy against training residuals and the
// held-out window, in model order
type Report struct {
	Window     int     `json:"window"`
	Confidence float64 `json:"confidence"`
	Entries    []Entry `json:"entries"`
}

// Entry returns the entry for a model name
func (r Report) Entry(name string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.ModelName == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Successful returns the entries without errors
func (r Report) Successful() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Failed returns the entries with errors
func (r Report) Failed() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Ranked orders the successful entries by a test metric, best first.
// Lower is better except for rsq; me ranks by magnitude.
func (r Report) Ranked(metric string) ([]Entry, error) {
	if _, ok := (Metrics{}).Value(metric); !ok {
		return nil, apierrors.InvalidInput("rank", fmt.Sprintf("unknown metric %q", metric))
	}
	out := r.Successful()
	sortEntries(out, metric)
	return out, nil
}

// Evaluator scores models on a train/test split
type Evaluator struct {
	logger *slog.Logger
	runner *Runner
}

// NewEvaluator creates an Evaluator around runner
func NewEvaluator(logger *slog.Logger, runner *Runner) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewRunner(logger, nil, nil)
	}
	return &Evaluator{logger: logger, runner: runner}
}

// Evaluate scores each model with default logging and no metrics
func Evaluate(ctx context.Context, ms []models.Model, plan series.SplitPlan, level float64) (Report, error) {
	return NewEvaluator(nil, nil).Evaluate(ctx, ms, plan, level)
}

// Evaluate fits every model on the training partition and forecasts the
// testing partition. A failing model is recorded and the rest continue.
func (e *Evaluator) Evaluate(ctx context.Context, ms []models.Model, plan series.SplitPlan, level float64) (Report, error) {
	if plan.Training.Empty() {
		return Report{}, apierrors.EmptySeries("evaluate")
	}
	if plan.Testing.Empty() {
		return Report{}, apierrors.InvalidInput("evaluate", "test window is empty")
	}

	report := Report{Window: plan.Window(), Confidence: level}
	scale := NaiveScale(plan.Training.Values())

	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		report.Entries = append(report.Entries, e.evaluateOne(ctx, m, plan, level, scale))
	}

	e.logger.InfoContext(ctx, "evaluation completed",
		slog.Int("models", len(ms)),
		slog.Int("failed", len(report.Failed())),
		slog.Int("training", plan.Training.Len()),
		slog.Int("testing", plan.Testing.Len()))
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, m models.Model, plan series.SplitPlan, level, scale float64) Entry {
	entry := Entry{ModelName: m.Name(), Kind: m.Kind(), Train: emptyMetrics(), Test: emptyMetrics()}

	fitted, res, err := e.runner.Run(ctx, m, plan.Training, testHorizon(plan), level)
	if err != nil {
		entry.Err = err
		entry.Error = err.Error()
		return entry
	}

	actual, predicted, res := alignTest(plan.Testing, res)
	entry.Train = Compute(plan.Training.Values(), fitted.FittedValues(), scale)
	entry.Test = Compute(actual, predicted, scale)
	entry.Params = res.Params
	entry.Forecast = &res

	e.logger.InfoContext(ctx, "model evaluated",
		slog.String("model", m.Name()),
		slog.Float64("train_rmse", nanToZero(entry.Train.RMSE)),
		slog.Float64("test_rmse", nanToZero(entry.Test.RMSE)),
		slog.Float64("test_mape", nanToZero(entry.Test.MAPE)))
	return entry
}

// testHorizon counts periods of the training frequency from the last
// training date to the last testing date. Missing months inside the test
// window make it longer than the window itself.
func testHorizon(plan series.SplitPlan) int {
	freq := series.InferFrequency(plan.Training.Dates())
	last := plan.Training.Last().Date
	target := plan.Testing.Last().Date
	h := 1
	for freq.Add(last, h).Before(target) {
		h++
	}
	return max(h, plan.Window())
}

// alignTest pairs forecast points with test points on the same calendar
// day and trims the forecast to the dates the test window holds
func alignTest(testing series.Series, res models.ForecastResult) (actual, predicted []float64, out models.ForecastResult) {
	want := make(map[string]float64, testing.Len())
	for _, p := range testing.Points {
		want[dayKey(p.Date)] = p.Value
	}

	out = res
	out.Point = keepDays(res.Point, want)
	out.Lower = keepDays(res.Lower, want)
	out.Upper = keepDays(res.Upper, want)
	out.Horizon = out.Point.Len()

	for _, p := range out.Point.Points {
		actual = append(actual, want[dayKey(p.Date)])
		predicted = append(predicted, p.Value)
	}
	return actual, predicted, out
}

func keepDays(s series.Series, days map[string]float64) series.Series {
	out := series.Series{Name: s.Name}
	for _, p := range s.Points {
		if _, ok := days[dayKey(p.Date)]; ok {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

func dayKey(t time.Time) string { return t.Format(time.DateOnly) }

// nanToZero keeps log output valid JSON
func nanToZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
