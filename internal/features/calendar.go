// Package features assembles the exogenous calendar regressors used by
// the regression and boosting models.
package features

import (
	"fmt"
	"time"

	"wellcast/internal/series"
)

// Calendar holds per-date regressors: a numeric date in fractional years
// and a one-hot month label
type Calendar struct {
	Dates []time.Time
	// Years is the decimal year, e.g. 2020.5 for 2 July 2020
	Years []float64
	// Months holds twelve indicator columns per date, January first
	Months [][12]float64
}

// NewCalendar derives the calendar features of dates
func NewCalendar(dates []time.Time) Calendar {
	c := Calendar{
		Dates:  append([]time.Time(nil), dates...),
		Years:  make([]float64, len(dates)),
		Months: make([][12]float64, len(dates)),
	}
	for i, d := range dates {
		c.Years[i] = DecimalYear(d)
		c.Months[i][int(d.Month())-1] = 1
	}
	return c
}

// Len returns the number of dates
func (c Calendar) Len() int { return len(c.Dates) }

// Row returns the regressor row i: the numeric date followed by the
// month indicators
func (c Calendar) Row(i int) []float64 {
	row := make([]float64, 0, 13)
	row = append(row, c.Years[i])
	row = append(row, c.Months[i][:]...)
	return row
}

// Matrix returns every row
func (c Calendar) Matrix() [][]float64 {
	rows := make([][]float64, c.Len())
	for i := range rows {
		rows[i] = c.Row(i)
	}
	return rows
}

// ColumnNames labels Row's columns
func ColumnNames() []string {
	names := []string{"date_numeric"}
	for m := time.January; m <= time.December; m++ {
		names = append(names, fmt.Sprintf("month_%s", m.String()[:3]))
	}
	return names
}

// DecimalYear converts t to a fractional year
func DecimalYear(t time.Time) float64 {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(1, 0, 0)
	return float64(t.Year()) + float64(t.Sub(start))/float64(end.Sub(start))
}

// FuturePeriods returns the h dates following last at frequency f
func FuturePeriods(last time.Time, h int, f series.Frequency) []time.Time {
	return series.FutureDates(last, h, f)
}

// FutureCalendar builds the features for the h periods after s
func FutureCalendar(s series.Series, h int) Calendar {
	if s.Empty() {
		return Calendar{}
	}
	freq := series.InferFrequency(s.Dates())
	return NewCalendar(FuturePeriods(s.Last().Date, h, freq))
}
