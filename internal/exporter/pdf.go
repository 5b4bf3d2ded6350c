package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf/v2"

	"wellcast/internal/evaluation"
)

const (
	pdfFont       = "Arial"
	pdfChartH     = 90.0
	pdfRowH       = 6.0
	pdfPageBottom = 185.0
)

// PDFReport renders a run onto landscape letter pages
type PDFReport struct {
	pdf    *gofpdf.Fpdf
	report *Report
}

// NewPDFReport prepares a document for r
func NewPDFReport(r *Report) *PDFReport {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(r.title(), true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(pdfFont, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, "run "+r.RunID, "", 0, "R", false, 0, "")
	})
	return &PDFReport{pdf: pdf, report: r}
}

// WritePDF renders r to path
func WritePDF(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	doc := NewPDFReport(r)
	doc.Render()
	if err := doc.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// Render lays out every section of the report
func (g *PDFReport) Render() {
	pdf := g.pdf
	r := g.report
	pdf.AddPage()

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, r.title(), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 9)
	pdf.SetTextColor(100, 100, 100)
	generated := r.GeneratedAt.Format("January 2, 2006 at 15:04 MST")
	pdf.CellFormat(0, 5, "Generated: "+generated, "", 1, "C", false, 0, "")
	if r.Input != "" {
		pdf.CellFormat(0, 5, "Input: "+filepath.Base(r.Input), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	g.overview()
	g.chart()
	g.accuracy()
	g.forecasts()
}

func (g *PDFReport) heading(text string) {
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.SetFont(pdfFont, "B", 12)
	g.pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	g.pdf.SetFont(pdfFont, "", 9)
}

func (g *PDFReport) line(format string, args ...interface{}) {
	g.pdf.CellFormat(0, 5, fmt.Sprintf(format, args...), "", 1, "L", false, 0, "")
}

func (g *PDFReport) overview() {
	r := g.report
	g.heading("Overview")
	if r.Counts.Records > 0 {
		g.line("Records: %d   Wells: %d   Eligible: %d   Dropped: %d",
			r.Counts.Records, r.Counts.Wells, r.Counts.Eligible, r.Counts.Dropped)
	}
	if h := r.history(); !h.Empty() {
		g.line("Series: %d monthly points from %s to %s",
			h.Len(), formatDate(h.First().Date), formatDate(h.Last().Date))
	}
	if r.Clip != nil {
		g.line("Outliers replaced: %d (bounds %s to %s, median %s)",
			r.Clip.Replaced, formatFloat(r.Clip.Lower), formatFloat(r.Clip.Upper), formatFloat(r.Clip.Median))
	}
	if d := r.Diagnosis; d != nil {
		g.line("ADF on levels: statistic %s, p-value %s, lags %d, stationary %t",
			formatMetric(d.Level.Statistic), formatMetric(d.Level.PValue), d.Level.Lags, d.Level.Stationary)
		if d.Difference != nil {
			g.line("ADF on first difference: statistic %s, p-value %s, stationary %t",
				formatMetric(d.Difference.Statistic), formatMetric(d.Difference.PValue), d.Difference.Stationary)
		}
		g.line("Suggested differencing order: %d", d.SuggestedD)
	}
	if r.Split != nil && !r.Split.Testing.Empty() {
		g.line("Training: %d points, testing: %d points from %s",
			r.Split.Training.Len(), r.Split.Testing.Len(), formatDate(r.Split.Testing.First().Date))
	}
	g.pdf.Ln(3)
}

// chart draws history and forecasts with dashed interval bounds
func (g *PDFReport) chart() {
	p := newPlot(g.report)
	if p.Empty() {
		return
	}
	pdf := g.pdf
	g.heading("History and forecast")

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	x0 := left + 18
	w := pageW - right - x0
	y0 := pdf.GetY() + 2
	h := pdfChartH

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.SetFont(pdfFont, "", 7)
	pdf.SetTextColor(90, 90, 90)
	for _, v := range p.yTicks(4) {
		_, sy := p.scale(p.XMin, v, w, h)
		pdf.Line(x0, y0+sy, x0+w, y0+sy)
		pdf.Text(left, y0+sy+1, formatFloat(v))
	}
	for _, t := range p.xTicks() {
		sx, _ := p.scale(unixDays(t), p.YMin, w, h)
		pdf.Line(x0+sx, y0, x0+sx, y0+h)
		pdf.Text(x0+sx-6, y0+h+4, t.Format("2006-01"))
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(x0, y0, w, h, "D")

	for _, l := range p.Lines {
		pdf.SetDrawColor(l.Color.R, l.Color.G, l.Color.B)
		if l.Band {
			pdf.SetLineWidth(0.2)
			pdf.SetDashPattern([]float64{1, 1}, 0)
		} else {
			pdf.SetLineWidth(0.5)
			pdf.SetDashPattern([]float64{}, 0)
		}
		for i := 1; i < len(l.X); i++ {
			if !finite(l.Y[i-1]) || !finite(l.Y[i]) {
				continue
			}
			ax, ay := p.scale(l.X[i-1], l.Y[i-1], w, h)
			bx, by := p.scale(l.X[i], l.Y[i], w, h)
			pdf.Line(x0+ax, y0+ay, x0+bx, y0+by)
		}
	}
	pdf.SetDashPattern([]float64{}, 0)

	// legend below the axis labels
	pdf.SetY(y0 + h + 7)
	pdf.SetX(x0)
	for _, l := range p.Lines {
		if l.Band {
			continue
		}
		pdf.SetFillColor(l.Color.R, l.Color.G, l.Color.B)
		x, y := pdf.GetXY()
		pdf.Rect(x, y+1.5, 3, 3, "F")
		pdf.SetX(x + 4)
		pdf.CellFormat(pdf.GetStringWidth(l.Name)+6, 6, l.Name, "", 0, "L", false, 0, "")
	}
	pdf.Ln(10)
}

func (g *PDFReport) accuracy() {
	r := g.report
	if r.Accuracy == nil || len(r.Accuracy.Entries) == 0 {
		return
	}
	g.heading(fmt.Sprintf("Hold-out accuracy (%d points)", r.Accuracy.Window))

	headers := []string{"model", "kind"}
	headers = append(headers, evaluation.MetricNames...)
	widths := []float64{36, 34}
	for range evaluation.MetricNames {
		widths = append(widths, 24)
	}

	var rows [][]string
	for _, e := range r.Accuracy.Entries {
		row := []string{e.ModelName, string(e.Kind)}
		for _, name := range evaluation.MetricNames {
			v, _ := e.Test.Value(name)
			row = append(row, formatMetric(v))
		}
		if !e.OK() {
			row = append(row[:2], "failed: "+e.Error)
		}
		rows = append(rows, row)
	}
	g.table(headers, widths, rows)
}

func (g *PDFReport) forecasts() {
	r := g.report
	if r.Forecasts == nil {
		return
	}
	results := r.Forecasts.Successful()
	if len(results) == 0 {
		return
	}
	g.heading(fmt.Sprintf("Forecasts (%d months, %.0f%% intervals)", r.Forecasts.Horizon, r.Forecasts.Confidence*100))

	headers := []string{"model", "date", "forecast", "lower", "upper"}
	widths := []float64{40, 30, 34, 34, 34}
	var rows [][]string
	for _, res := range results {
		for i, p := range res.Point.Points {
			rows = append(rows, []string{
				res.ModelName,
				formatDate(p.Date),
				formatFloat(p.Value),
				formatFloat(res.Lower.Points[i].Value),
				formatFloat(res.Upper.Points[i].Value),
			})
		}
	}
	g.table(headers, widths, rows)

	for _, o := range r.Forecasts.Outcomes {
		if o.Err != nil {
			g.line("%s failed: %s", o.ModelName, o.Error)
		}
	}
}

// table draws a bordered table, repeating the header after page breaks
func (g *PDFReport) table(headers []string, widths []float64, rows [][]string) {
	pdf := g.pdf
	header := func() {
		pdf.SetFont(pdfFont, "B", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.1)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFont, "", 8)
	}

	header()
	for n, row := range rows {
		if pdf.GetY() > pdfPageBottom {
			pdf.AddPage()
			header()
		}
		if n%2 == 1 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for i, cell := range row {
			w := widths[i]
			if i == len(row)-1 && len(row) < len(widths) {
				for _, rest := range widths[i+1:] {
					w += rest
				}
			}
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(w, pdfRowH, cell, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}
