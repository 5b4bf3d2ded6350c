package production

import "strings"

// Column names understood by the loader. Matching is case-insensitive and
// ignores surrounding whitespace.
var columnAliases = map[string][]string{
	"well_id": {"well_id", "well", "wellid", "api", "well id"},
	"period":  {"period", "date", "production_date", "month"},
	"oil":     {"oil", "oil_volume", "oil_bbl"},
	"gas":     {"gas", "gas_volume", "gas_mcf"},
}

// requiredColumns is the order columns are resolved and reported in
var requiredColumns = []string{"well_id", "period", "oil", "gas"}

type columnIndex map[string]int

// resolveColumns maps each required column to its position in header.
// The first missing column is returned when the header is incomplete.
func resolveColumns(header []string) (columnIndex, string) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	idx := make(columnIndex, len(requiredColumns))
	for _, col := range requiredColumns {
		found := false
		for _, alias := range columnAliases[col] {
			if pos, ok := positions[alias]; ok {
				idx[col] = pos
				found = true
				break
			}
		}
		if !found {
			return nil, col
		}
	}
	return idx, ""
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// cell returns the trimmed value at the column position, or "" for short rows
func (c columnIndex) cell(row []string, col string) string {
	pos := c[col]
	if pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}
