package exporter

import (
	"math"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// formatFloat formats a volume with exactly 2 decimal places; undefined
// values are left blank
func formatFloat(f float64) string {
	if !finite(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatMetric keeps more precision for ratios and scores
func formatMetric(f float64) string {
	if !finite(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
