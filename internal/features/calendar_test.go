package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcast/internal/series"
)

func TestDecimalYear(t *testing.T) {
	assert.Equal(t, 2020.0, DecimalYear(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	// 2021 has 365 days; 2 July is day 182
	assert.InDelta(t, 2021+182.0/365, DecimalYear(time.Date(2021, 7, 2, 0, 0, 0, 0, time.UTC)), 1e-12)
}

func TestNewCalendar(t *testing.T) {
	dates := []time.Time{
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	c := NewCalendar(dates)
	require.Equal(t, 2, c.Len())

	row := c.Row(0)
	require.Len(t, row, 13)
	assert.InDelta(t, DecimalYear(dates[0]), row[0], 1e-12)
	assert.Equal(t, 1.0, row[3])
	sum := 0.0
	for _, v := range row[1:] {
		sum += v
	}
	assert.Equal(t, 1.0, sum)

	assert.Equal(t, 1.0, c.Matrix()[1][12])
	assert.Len(t, ColumnNames(), 13)
	assert.Equal(t, "month_Mar", ColumnNames()[3])
}

func TestFutureCalendar(t *testing.T) {
	s := series.Series{Points: []series.Point{
		{Date: time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC), Value: 1},
		{Date: time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC), Value: 2},
	}}

	c := FutureCalendar(s, 3)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC), c.Dates[0])
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), c.Dates[2])
	assert.Equal(t, 1.0, c.Months[1][0])

	assert.Equal(t, 0, FutureCalendar(series.Series{}, 3).Len())
}
