package series

import (
	"fmt"
	"math"
	"time"

	apierrors "wellcast/internal/errors"
)

// Point is one dated observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an ordered sequence of points with strictly increasing dates.
// Operations return new series and never modify their receiver.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// New builds a series from parallel date and value slices
func New(name string, dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, apierrors.InvalidInput("new series",
			fmt.Sprintf("%d dates but %d values", len(dates), len(values)))
	}
	points := make([]Point, len(dates))
	for i := range dates {
		points[i] = Point{Date: dates[i], Value: values[i]}
	}
	s := Series{Name: name, Points: points}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Validate checks that dates are strictly increasing
func (s Series) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return apierrors.InvalidInput("validate series",
				fmt.Sprintf("dates not strictly increasing at index %d (%s after %s)",
					i, s.Points[i].Date.Format("2006-01-02"), s.Points[i-1].Date.Format("2006-01-02")))
		}
	}
	return nil
}

// Len returns the number of points
func (s Series) Len() int { return len(s.Points) }

// Empty reports whether the series has no points
func (s Series) Empty() bool { return len(s.Points) == 0 }

// Values returns a copy of the observation values
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Dates returns a copy of the observation dates
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// First returns the earliest point; the series must not be empty
func (s Series) First() Point { return s.Points[0] }

// Last returns the latest point; the series must not be empty
func (s Series) Last() Point { return s.Points[len(s.Points)-1] }

// Clone returns a deep copy
func (s Series) Clone() Series {
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	return Series{Name: s.Name, Points: points}
}

// WithName returns a copy renamed to name
func (s Series) WithName(name string) Series {
	c := s.Clone()
	c.Name = name
	return c
}

// WithValues returns a copy with the same dates and new values
func (s Series) WithValues(values []float64) (Series, error) {
	if len(values) != len(s.Points) {
		return Series{}, apierrors.InvalidInput("replace values",
			fmt.Sprintf("%d values for %d points", len(values), len(s.Points)))
	}
	c := s.Clone()
	for i := range c.Points {
		c.Points[i].Value = values[i]
	}
	return c, nil
}

// Slice returns points [i, j) as a new series
func (s Series) Slice(i, j int) Series {
	points := make([]Point, j-i)
	copy(points, s.Points[i:j])
	return Series{Name: s.Name, Points: points}
}

// Concat appends other after s. Used to check that a split reconstructs its input.
func (s Series) Concat(other Series) Series {
	points := make([]Point, 0, len(s.Points)+len(other.Points))
	points = append(points, s.Points...)
	points = append(points, other.Points...)
	return Series{Name: s.Name, Points: points}
}

// Diff returns the first difference; the result is one point shorter and
// dated at the later observation of each pair.
func (s Series) Diff() Series {
	if len(s.Points) < 2 {
		return Series{Name: s.Name}
	}
	points := make([]Point, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		points[i-1] = Point{Date: s.Points[i].Date, Value: s.Points[i].Value - s.Points[i-1].Value}
	}
	return Series{Name: s.Name, Points: points}
}

// From keeps points dated on or after cutoff. A zero cutoff keeps everything.
func From(s Series, cutoff time.Time) Series {
	if cutoff.IsZero() {
		return s.Clone()
	}
	out := Series{Name: s.Name}
	for _, p := range s.Points {
		if !p.Date.Before(cutoff) {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// FiniteValues returns the values that are neither NaN nor infinite
func FiniteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
