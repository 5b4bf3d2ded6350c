package wells

import (
	"sort"

	"wellcast/internal/production"
)

// Eligible returns the ids of wells with at least minMonths records
func Eligible(profiles []Profile, minMonths int) []string {
	var ids []string
	for _, p := range profiles {
		if p.MonthsOfProduction >= minMonths {
			ids = append(ids, p.WellID)
		}
	}
	sort.Strings(ids)
	return ids
}

// FilterRecords keeps records of the given wells that report both oil and
// gas. Any record with a zero volume is dropped, not clipped.
func FilterRecords(records []production.Record, wellIDs []string) []production.Record {
	keep := make(map[string]struct{}, len(wellIDs))
	for _, id := range wellIDs {
		keep[id] = struct{}{}
	}

	out := make([]production.Record, 0, len(records))
	for _, r := range records {
		if _, ok := keep[r.WellID]; !ok {
			continue
		}
		if r.Oil <= 0 || r.Gas <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Selection is the outcome of profiling and filtering a record set
type Selection struct {
	Profiles []Profile
	Eligible []string
	Records  []production.Record
	// Dropped counts records of eligible wells removed for a zero volume
	Dropped int
}

// Select profiles every well, keeps wells with at least minMonths records
// and restricts the records to those wells' non-zero months.
func Select(records []production.Record, minMonths int) Selection {
	profiles := Profiles(records)
	eligible := Eligible(profiles, minMonths)
	filtered := FilterRecords(records, eligible)

	months := 0
	for _, p := range profiles {
		if p.MonthsOfProduction >= minMonths {
			months += p.MonthsOfProduction
		}
	}

	return Selection{
		Profiles: profiles,
		Eligible: eligible,
		Records:  filtered,
		Dropped:  months - len(filtered),
	}
}
