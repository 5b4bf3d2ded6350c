package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/models"
	"wellcast/internal/series"
)

// minFoldTraining is the shortest training prefix a fold may have
const minFoldTraining = 3

// Fold is one rolling-origin split: an expanding training prefix followed
// by a fixed-length assessment window
type Fold struct {
	Index    int           `json:"index"`
	Training series.Series `json:"-"`
	Testing  series.Series `json:"-"`
}

// Plan returns the fold as a split plan
func (f Fold) Plan() series.SplitPlan {
	return series.SplitPlan{Training: f.Training, Testing: f.Testing}
}

// RollingOrigin builds folds whose assessment windows end skip periods
// apart, the last one at the end of the series
func RollingOrigin(s series.Series, folds, window, skip int) ([]Fold, error) {
	if s.Empty() {
		return nil, apierrors.EmptySeries("cross-validation plan")
	}
	switch {
	case folds < 1:
		return nil, apierrors.InvalidInput("cross-validation plan", fmt.Sprintf("folds must be at least 1, got %d", folds))
	case window < 1:
		return nil, apierrors.InvalidInput("cross-validation plan", fmt.Sprintf("window must be at least 1, got %d", window))
	case skip < 1:
		return nil, apierrors.InvalidInput("cross-validation plan", fmt.Sprintf("skip must be at least 1, got %d", skip))
	}

	n := s.Len()
	firstTrain := n - (folds-1)*skip - window
	if firstTrain < minFoldTraining {
		return nil, apierrors.InvalidInput("cross-validation plan",
			fmt.Sprintf("%d folds of window %d every %d periods need at least %d points, got %d",
				folds, window, skip, (folds-1)*skip+window+minFoldTraining, n))
	}

	out := make([]Fold, folds)
	for i := range out {
		cut := firstTrain + i*skip
		out[i] = Fold{
			Index:    i + 1,
			Training: s.Slice(0, cut),
			Testing:  s.Slice(cut, cut+window),
		}
	}
	return out, nil
}

// FoldScore is one model's test accuracy on one fold
type FoldScore struct {
	Fold      int         `json:"fold"`
	ModelName string      `json:"model"`
	Kind      models.Kind `json:"kind"`
	Test      Metrics     `json:"test"`
	Error     string      `json:"error,omitempty"`
}

// CVSummary averages a model's fold metrics over the folds it completed.
// Mean.N is the total number of scored test points.
type CVSummary struct {
	ModelName string      `json:"model"`
	Kind      models.Kind `json:"kind"`
	Folds     int         `json:"folds"`
	Failed    int         `json:"failed"`
	Mean      Metrics     `json:"mean"`
}

// CVReport is the outcome of cross-validation
type CVReport struct {
	Folds   []Fold      `json:"-"`
	Scores  []FoldScore `json:"scores"`
	Summary []CVSummary `json:"summary"`
}

// CrossValidate evaluates every model on every fold
func (e *Evaluator) CrossValidate(ctx context.Context, ms []models.Model, folds []Fold, level float64) (CVReport, error) {
	report := CVReport{Folds: folds}
	for _, fold := range folds {
		r, err := e.Evaluate(ctx, ms, fold.Plan(), level)
		if err != nil {
			return CVReport{}, fmt.Errorf("fold %d: %w", fold.Index, err)
		}
		for _, entry := range r.Entries {
			report.Scores = append(report.Scores, FoldScore{
				Fold:      fold.Index,
				ModelName: entry.ModelName,
				Kind:      entry.Kind,
				Test:      entry.Test,
				Error:     entry.Error,
			})
		}
	}

	for _, m := range ms {
		report.Summary = append(report.Summary, summarize(m, report.Scores))
	}

	e.logger.InfoContext(ctx, "cross-validation completed",
		slog.Int("folds", len(folds)),
		slog.Int("models", len(ms)))
	return report, nil
}

func summarize(m models.Model, scores []FoldScore) CVSummary {
	sum := CVSummary{ModelName: m.Name(), Kind: m.Kind(), Mean: emptyMetrics()}
	byMetric := make(map[string][]float64, len(MetricNames))
	for _, s := range scores {
		if s.ModelName != m.Name() {
			continue
		}
		if s.Error != "" {
			sum.Failed++
			continue
		}
		sum.Folds++
		sum.Mean.N += s.Test.N
		for _, name := range MetricNames {
			v, _ := s.Test.Value(name)
			byMetric[name] = append(byMetric[name], v)
		}
	}
	sum.Mean.RMSE = finiteMean(byMetric[MetricRMSE])
	sum.Mean.MAE = finiteMean(byMetric[MetricMAE])
	sum.Mean.MAPE = finiteMean(byMetric[MetricMAPE])
	sum.Mean.SMAPE = finiteMean(byMetric[MetricSMAPE])
	sum.Mean.MASE = finiteMean(byMetric[MetricMASE])
	sum.Mean.ME = finiteMean(byMetric[MetricME])
	sum.Mean.RSQ = finiteMean(byMetric[MetricRSQ])
	return sum
}

func finiteMean(values []float64) float64 {
	total, n := 0.0, 0
	for _, v := range values {
		if finite(v) {
			total += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return total / float64(n)
}
