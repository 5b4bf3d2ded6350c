package series

import (
	"math"
	"sort"

	apierrors "wellcast/internal/errors"
)

// DefaultIQRMultiplier is the conventional Tukey fence multiplier
const DefaultIQRMultiplier = 1.5

// ClipReport describes the fences used by Clip and what was replaced
type ClipReport struct {
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Median   float64 `json:"median"`
	Replaced int     `json:"replaced"`
	Indices  []int   `json:"indices,omitempty"`
}

// Clip replaces every value strictly outside [Q1-k*IQR, Q3+k*IQR] with the
// median of the original series. Fences and median come from the input
// values in a single pass, so replacements never move the fences. Dates,
// order and length are unchanged.
func Clip(s Series, k float64) (Series, ClipReport, error) {
	if s.Empty() {
		return Series{}, ClipReport{}, apierrors.EmptySeries("clip")
	}
	if k < 0 || math.IsNaN(k) {
		return Series{}, ClipReport{}, apierrors.InvalidInput("clip", "IQR multiplier must be non-negative")
	}

	sorted := FiniteValues(s.Values())
	if len(sorted) == 0 {
		return Series{}, ClipReport{}, apierrors.InvalidInput("clip", "series has no finite values")
	}
	sort.Float64s(sorted)

	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	report := ClipReport{
		Q1:     q1,
		Q3:     q3,
		IQR:    iqr,
		Lower:  q1 - k*iqr,
		Upper:  q3 + k*iqr,
		Median: quantileSorted(sorted, 0.5),
	}

	out := s.Clone()
	for i, p := range out.Points {
		if p.Value < report.Lower || p.Value > report.Upper {
			out.Points[i].Value = report.Median
			report.Indices = append(report.Indices, i)
		}
	}
	report.Replaced = len(report.Indices)

	return out, report, nil
}
