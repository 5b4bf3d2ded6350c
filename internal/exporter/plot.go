package exporter

import (
	"fmt"
	"math"
	"time"
)

// palette is shared by the PDF and HTML charts
var palette = []RGB{
	{31, 119, 180},
	{255, 127, 14},
	{44, 160, 44},
	{214, 39, 40},
	{148, 103, 189},
	{140, 86, 75},
	{227, 119, 194},
}

var observedColor = RGB{60, 60, 60}

// RGB is a chart colour
type RGB struct {
	R, G, B int
}

// Hex formats the colour for SVG
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// plotLine is one polyline in data coordinates. Band lines are the
// interval bounds of a forecast and are drawn dashed.
type plotLine struct {
	Name  string
	Color RGB
	Band  bool
	X     []float64 // unix days
	Y     []float64
}

// plot holds the lines of the history and forecast chart with their
// common data range
type plot struct {
	Title      string
	YLabel     string
	Lines      []plotLine
	XMin, XMax float64
	YMin, YMax float64
}

func unixDays(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

// newPlot collects the observed history, each model's point forecast and
// its interval bounds
func newPlot(r *Report) plot {
	p := plot{Title: r.title(), YLabel: r.Target}

	history := r.history()
	if !history.Empty() {
		line := plotLine{Name: "observed", Color: observedColor}
		for _, pt := range history.Points {
			line.X = append(line.X, unixDays(pt.Date))
			line.Y = append(line.Y, pt.Value)
		}
		p.Lines = append(p.Lines, line)
	}

	if r.Forecasts != nil {
		for i, res := range r.Forecasts.Successful() {
			color := palette[i%len(palette)]
			point := plotLine{Name: res.ModelName, Color: color}
			lower := plotLine{Name: res.ModelName + " lower", Color: color, Band: true}
			upper := plotLine{Name: res.ModelName + " upper", Color: color, Band: true}
			if !history.Empty() {
				last := history.Last()
				point.X = append(point.X, unixDays(last.Date))
				point.Y = append(point.Y, last.Value)
			}
			for k, pt := range res.Point.Points {
				x := unixDays(pt.Date)
				point.X = append(point.X, x)
				point.Y = append(point.Y, pt.Value)
				lower.X = append(lower.X, x)
				lower.Y = append(lower.Y, res.Lower.Points[k].Value)
				upper.X = append(upper.X, x)
				upper.Y = append(upper.Y, res.Upper.Points[k].Value)
			}
			p.Lines = append(p.Lines, point, lower, upper)
		}
	}

	p.XMin, p.YMin = math.Inf(1), math.Inf(1)
	p.XMax, p.YMax = math.Inf(-1), math.Inf(-1)
	for _, l := range p.Lines {
		for i := range l.X {
			if !finite(l.Y[i]) {
				continue
			}
			p.XMin = math.Min(p.XMin, l.X[i])
			p.XMax = math.Max(p.XMax, l.X[i])
			p.YMin = math.Min(p.YMin, l.Y[i])
			p.YMax = math.Max(p.YMax, l.Y[i])
		}
	}
	if p.Empty() {
		return p
	}
	if p.XMax == p.XMin {
		p.XMax = p.XMin + 1
	}
	if p.YMax == p.YMin {
		p.YMax = p.YMin + 1
	}
	pad := (p.YMax - p.YMin) * 0.05
	p.YMin -= pad
	p.YMax += pad
	return p
}

// Empty reports whether there is nothing to draw
func (p plot) Empty() bool {
	return math.IsInf(p.XMin, 1)
}

// scale maps data coordinates into a box of width w and height h with
// the y axis pointing down
func (p plot) scale(x, y, w, h float64) (float64, float64) {
	sx := (x - p.XMin) / (p.XMax - p.XMin) * w
	sy := h - (y-p.YMin)/(p.YMax-p.YMin)*h
	return sx, sy
}

// yTicks returns n+1 evenly spaced values over the y range
func (p plot) yTicks(n int) []float64 {
	ticks := make([]float64, n+1)
	for i := range ticks {
		ticks[i] = p.YMin + float64(i)*(p.YMax-p.YMin)/float64(n)
	}
	return ticks
}

// xTicks returns January 1st of each year in range, or the endpoints
// when the range is shorter than a year
func (p plot) xTicks() []time.Time {
	start := time.Unix(int64(p.XMin*86400), 0).UTC()
	end := time.Unix(int64(p.XMax*86400), 0).UTC()
	var ticks []time.Time
	for y := start.Year(); y <= end.Year(); y++ {
		t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		if !t.Before(start) && !t.After(end) {
			ticks = append(ticks, t)
		}
	}
	if len(ticks) < 2 {
		return []time.Time{start, end}
	}
	return ticks
}
