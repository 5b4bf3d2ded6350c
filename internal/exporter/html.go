package exporter

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	svgMarginLeft   = 70.0
	svgMarginRight  = 20.0
	svgMarginTop    = 40.0
	svgMarginBottom = 60.0
)

var chartTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; background: #fff; }
text { font-size: 11px; fill: #555; }
.title { font-size: 16px; font-weight: bold; fill: #000; }
.grid { stroke: #ddd; stroke-width: 1; }
.band { stroke-dasharray: 4 3; stroke-width: 1; fill: none; }
.series { stroke-width: 2; fill: none; }
</style>
</head>
<body>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<text class="title" x="{{.TitleX}}" y="24" text-anchor="middle">{{.Title}}</text>
<g transform="translate({{.Left}},{{.Top}})">
{{- range .YTicks}}
<line class="grid" x1="0" x2="{{$.PlotW}}" y1="{{.Pos}}" y2="{{.Pos}}"/>
<text x="-6" y="{{.Pos}}" dy="4" text-anchor="end">{{.Label}}</text>
{{- end}}
{{- range .XTicks}}
<line class="grid" x1="{{.Pos}}" x2="{{.Pos}}" y1="0" y2="{{$.PlotH}}"/>
<text x="{{.Pos}}" y="{{$.PlotH}}" dy="16" text-anchor="middle">{{.Label}}</text>
{{- end}}
<rect x="0" y="0" width="{{.PlotW}}" height="{{.PlotH}}" fill="none" stroke="#000"/>
{{- range .Lines}}
<polyline class="{{if .Band}}band{{else}}series{{end}}" stroke="{{.Color}}" points="{{.Points}}"><title>{{.Name}}</title></polyline>
{{- end}}
<text x="-50" y="{{.MidY}}" transform="rotate(-90 -50 {{.MidY}})" text-anchor="middle">{{.YLabel}}</text>
</g>
<g transform="translate({{.Left}},{{.LegendY}})">
{{- range $i, $l := .Legend}}
<rect x="{{$l.X}}" y="-9" width="10" height="10" fill="{{$l.Color}}"/>
<text x="{{$l.X}}" dx="14" y="0">{{$l.Name}}</text>
{{- end}}
</g>
</svg>
</body>
</html>
`))

type svgTick struct {
	Pos   float64
	Label string
}

type svgLine struct {
	Name   string
	Color  string
	Band   bool
	Points string
}

type svgLegend struct {
	X     float64
	Name  string
	Color string
}

type chartView struct {
	Title          string
	YLabel         string
	Width, Height  int
	Left, Top      float64
	PlotW, PlotH   float64
	TitleX, MidY   float64
	LegendY        float64
	YTicks, XTicks []svgTick
	Lines          []svgLine
	Legend         []svgLegend
}

func newChartView(r *Report, width, height int) chartView {
	p := newPlot(r)
	v := chartView{
		Title:   p.Title,
		YLabel:  p.YLabel,
		Width:   width,
		Height:  height,
		Left:    svgMarginLeft,
		Top:     svgMarginTop,
		PlotW:   float64(width) - svgMarginLeft - svgMarginRight,
		PlotH:   float64(height) - svgMarginTop - svgMarginBottom,
		TitleX:  float64(width) / 2,
		LegendY: float64(height) - 14,
	}
	v.MidY = v.PlotH / 2
	if p.Empty() {
		return v
	}

	for _, y := range p.yTicks(5) {
		_, sy := p.scale(p.XMin, y, v.PlotW, v.PlotH)
		v.YTicks = append(v.YTicks, svgTick{Pos: round1(sy), Label: formatFloat(y)})
	}
	for _, t := range p.xTicks() {
		sx, _ := p.scale(unixDays(t), p.YMin, v.PlotW, v.PlotH)
		v.XTicks = append(v.XTicks, svgTick{Pos: round1(sx), Label: t.Format("2006-01")})
	}

	legendX := 0.0
	for _, l := range p.Lines {
		var pts []string
		for i := range l.X {
			if !finite(l.Y[i]) {
				continue
			}
			sx, sy := p.scale(l.X[i], l.Y[i], v.PlotW, v.PlotH)
			pts = append(pts, strconv.FormatFloat(round1(sx), 'f', -1, 64)+","+strconv.FormatFloat(round1(sy), 'f', -1, 64))
		}
		v.Lines = append(v.Lines, svgLine{Name: l.Name, Color: l.Color.Hex(), Band: l.Band, Points: strings.Join(pts, " ")})
		if !l.Band {
			v.Legend = append(v.Legend, svgLegend{X: legendX, Name: l.Name, Color: l.Color.Hex()})
			legendX += 24 + 7*float64(len(l.Name))
		}
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RenderHTMLChart writes a standalone HTML page with an inline SVG chart
// of the history and every successful forecast
func RenderHTMLChart(w io.Writer, r *Report, width, height int) error {
	if err := chartTemplate.Execute(w, newChartView(r, width, height)); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteHTMLChart renders the chart page to path
func WriteHTMLChart(path string, r *Report, width, height int) error {
	var buf bytes.Buffer
	if err := RenderHTMLChart(&buf, r, width, height); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}
