package wells

import (
	"math"
	"sort"
	"time"

	"wellcast/internal/production"
)

// Profile summarizes one well. NaN marks a value with no defined terms.
type Profile struct {
	WellID               string    `json:"well_id"`
	AvgGasOilRatio       float64   `json:"avg_gas_oil_ratio"`
	MonthsOfProduction   int       `json:"months_of_production"`
	FirstPeriod          time.Time `json:"first_period"`
	LastPeriod           time.Time `json:"last_period"`
	TotalOil             float64   `json:"total_oil"`
	TotalGas             float64   `json:"total_gas"`
	AvgMonthlyGasDecline float64   `json:"avg_monthly_gas_decline"`
}

// Profiles computes a profile for every well, sorted by well id
func Profiles(records []production.Record) []Profile {
	groups := production.GroupByWell(records)
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, ProfileWell(id, groups[id]))
	}
	return profiles
}

// ProfileWell summarizes the records of a single well. Undefined ratios and
// decline terms are skipped rather than reported as errors.
func ProfileWell(wellID string, records []production.Record) Profile {
	sorted := make([]production.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})

	p := Profile{
		WellID:               wellID,
		MonthsOfProduction:   len(sorted),
		AvgGasOilRatio:       math.NaN(),
		AvgMonthlyGasDecline: math.NaN(),
	}
	if len(sorted) == 0 {
		return p
	}

	p.FirstPeriod = sorted[0].Period
	p.LastPeriod = sorted[len(sorted)-1].Period

	ratios := make([]float64, 0, len(sorted))
	for _, r := range sorted {
		p.TotalOil += r.Oil
		p.TotalGas += r.Gas
		if r.Oil > 0 {
			ratios = append(ratios, r.Gas/r.Oil)
		}
	}
	p.AvgGasOilRatio = finiteMean(ratios)

	if len(sorted) >= 2 {
		changes := make([]float64, 0, len(sorted)-1)
		for i := 1; i < len(sorted); i++ {
			prev := sorted[i-1].Gas
			changes = append(changes, (sorted[i].Gas-prev)/prev)
		}
		p.AvgMonthlyGasDecline = finiteMean(changes)
	}

	return p
}

// finiteMean averages the finite terms; NaN when there are none
func finiteMean(values []float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
