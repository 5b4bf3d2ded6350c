package production

import (
	"sort"
	"time"
)

// Record is one well-month of production. Records are immutable once loaded.
type Record struct {
	WellID string    `json:"well_id" validate:"required"`
	Period time.Time `json:"period"`
	Oil    float64   `json:"oil" validate:"gte=0"`
	Gas    float64   `json:"gas" validate:"gte=0"`
}

// SortRecords orders records by well id, then period
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].WellID != records[j].WellID {
			return records[i].WellID < records[j].WellID
		}
		return records[i].Period.Before(records[j].Period)
	})
}

// GroupByWell splits records into per-well slices keeping input order
func GroupByWell(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.WellID] = append(groups[r.WellID], r)
	}
	return groups
}

// WellIDs returns the distinct well ids in ascending order
func WellIDs(records []Record) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range records {
		if _, ok := seen[r.WellID]; ok {
			continue
		}
		seen[r.WellID] = struct{}{}
		ids = append(ids, r.WellID)
	}
	sort.Strings(ids)
	return ids
}
