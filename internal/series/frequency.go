package series

import (
	"sort"
	"time"
)

// Frequency is the sampling interval of a series
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// PeriodsPerYear is the seasonal cycle length used by models and MASE
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case Daily:
		return 365
	case Weekly:
		return 52
	case Quarterly:
		return 4
	case Yearly:
		return 1
	default:
		return 12
	}
}

// InferFrequency classifies the median spacing between dates. Fewer than
// two dates are treated as monthly, the common case for production data.
func InferFrequency(dates []time.Time) Frequency {
	if len(dates) < 2 {
		return Monthly
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	sort.Float64s(gaps)
	median := quantileSorted(gaps, 0.5)

	switch {
	case median <= 1.5:
		return Daily
	case median <= 10:
		return Weekly
	case median <= 45:
		return Monthly
	case median <= 120:
		return Quarterly
	default:
		return Yearly
	}
}

// Add advances t by k periods. Month-based steps keep month-end dates at
// the end of the month and clamp other days to the target month's length.
func (f Frequency) Add(t time.Time, k int) time.Time {
	switch f {
	case Daily:
		return t.AddDate(0, 0, k)
	case Weekly:
		return t.AddDate(0, 0, 7*k)
	case Quarterly:
		return addMonths(t, 3*k)
	case Yearly:
		return addMonths(t, 12*k)
	default:
		return addMonths(t, k)
	}
}

func addMonths(t time.Time, k int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, k, 0)
	last := daysIn(target)
	if d == daysIn(t) || d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// FutureDates returns the h dates that follow last at frequency f
func FutureDates(last time.Time, h int, f Frequency) []time.Time {
	out := make([]time.Time, h)
	for i := 1; i <= h; i++ {
		out[i-1] = f.Add(last, i)
	}
	return out
}
