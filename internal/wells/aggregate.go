package wells

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/production"
	"wellcast/internal/series"
)

// Targets selectable for forecasting
const (
	TargetOil = "oil"
	TargetGas = "gas"
)

// AggregateRow holds the totals of one period across reporting wells
type AggregateRow struct {
	Period time.Time `json:"period"`
	Oil    float64   `json:"oil"`
	Gas    float64   `json:"gas"`
	Wells  int       `json:"wells"`
}

type periodTotals struct {
	oil   decimal.Decimal
	gas   decimal.Decimal
	wells map[string]struct{}
}

// Aggregate sums oil and gas per period over the wells that reported in it.
// Rows are sorted by period. Sums are exact decimals converted once at the end.
func Aggregate(records []production.Record) []AggregateRow {
	totals := make(map[time.Time]*periodTotals)
	for _, r := range records {
		t, ok := totals[r.Period]
		if !ok {
			t = &periodTotals{wells: make(map[string]struct{})}
			totals[r.Period] = t
		}
		t.oil = t.oil.Add(decimal.NewFromFloat(r.Oil))
		t.gas = t.gas.Add(decimal.NewFromFloat(r.Gas))
		t.wells[r.WellID] = struct{}{}
	}

	rows := make([]AggregateRow, 0, len(totals))
	for period, t := range totals {
		rows = append(rows, AggregateRow{
			Period: period,
			Oil:    t.oil.InexactFloat64(),
			Gas:    t.gas.InexactFloat64(),
			Wells:  len(t.wells),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period.Before(rows[j].Period)
	})
	return rows
}

// AggregateSeries turns aggregate rows into the series of the chosen target
func AggregateSeries(rows []AggregateRow, target string) (series.Series, error) {
	pick, err := targetOf(target)
	if err != nil {
		return series.Series{}, err
	}

	points := make([]series.Point, len(rows))
	for i, row := range rows {
		points[i] = series.Point{Date: row.Period, Value: pick(row)}
	}
	return series.Series{Name: "total_" + target, Points: points}, nil
}

// WellSeries returns the target series of one well from filtered records.
// Duplicate periods within the well are summed.
func WellSeries(records []production.Record, wellID, target string) (series.Series, error) {
	pick, err := targetOf(target)
	if err != nil {
		return series.Series{}, err
	}

	var own []production.Record
	for _, r := range records {
		if r.WellID == wellID {
			own = append(own, r)
		}
	}
	if len(own) == 0 {
		return series.Series{}, apierrors.UnknownWell(wellID)
	}

	rows := Aggregate(own)
	points := make([]series.Point, len(rows))
	for i, row := range rows {
		points[i] = series.Point{Date: row.Period, Value: pick(row)}
	}
	return series.Series{Name: wellID + "_" + target, Points: points}, nil
}

func targetOf(target string) (func(AggregateRow) float64, error) {
	switch target {
	case TargetOil:
		return func(r AggregateRow) float64 { return r.Oil }, nil
	case TargetGas:
		return func(r AggregateRow) float64 { return r.Gas }, nil
	default:
		return nil, apierrors.InvalidInput("select target", fmt.Sprintf("unknown target %q (want oil or gas)", target))
	}
}
