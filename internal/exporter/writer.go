package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"wellcast/internal/config"
)

// Writer renders every enabled artifact of a run into the output directory
type Writer struct {
	paths  *config.Paths
	render config.RenderConfig
	csv    *CSVWriter
	logger *slog.Logger
}

// NewWriter creates a writer for the given output locations
func NewWriter(paths *config.Paths, render config.RenderConfig, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		paths:  paths,
		render: render,
		csv:    NewCSVWriter(paths, logger),
		logger: logger,
	}
}

func (w *Writer) name(r *Report, file string) string {
	if r.Prefix == "" {
		return file
	}
	return config.SafeFileName(r.Prefix) + "_" + file
}

// WriteAll writes the artifacts enabled in the render settings and returns
// their paths in the order written. The PNG snapshot needs the HTML page,
// so it is rendered whenever PNG is on.
func (w *Writer) WriteAll(ctx context.Context, r *Report) ([]string, error) {
	var written []string
	add := func(path string, err error) error {
		if err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if w.render.CSV {
		if err := w.writeTables(r, add); err != nil {
			return written, err
		}
	}

	if w.render.JSON {
		path := w.paths.GetOutputPath(r.Prefix, SummaryFile)
		if err := add(path, WriteJSON(path, r)); err != nil {
			return written, err
		}
	}

	if w.render.Workbook && !r.history().Empty() {
		path := w.paths.GetOutputPath(r.Prefix, WorkbookFile)
		if err := add(path, WriteWorkbook(path, r)); err != nil {
			return written, err
		}
	}

	if w.render.PDF {
		path := w.paths.GetOutputPath(r.Prefix, PDFFile)
		if err := add(path, WritePDF(path, r)); err != nil {
			return written, err
		}
	}

	htmlPath := w.paths.GetOutputPath(r.Prefix, ChartFile)
	if (w.render.HTML || w.render.PNG) && !r.history().Empty() {
		if err := add(htmlPath, WriteHTMLChart(htmlPath, r, w.render.Width, w.render.Height)); err != nil {
			return written, err
		}

		if w.render.PNG {
			pngPath := w.paths.GetOutputPath(r.Prefix, SnapshotFile)
			opts := SnapshotOptions{
				Width:    w.render.Width,
				Height:   w.render.Height,
				Timeout:  w.render.ChromeTimeout,
				Headless: true,
			}
			if err := add(pngPath, Snapshot(ctx, htmlPath, pngPath, opts, w.logger)); err != nil {
				return written, err
			}
		}
	}

	w.logger.InfoContext(ctx, "artifacts written",
		slog.String("output_dir", w.paths.OutputDir),
		slog.Int("count", len(written)))
	return written, nil
}

// writeTables writes the CSV artifacts for whichever sections the report has
func (w *Writer) writeTables(r *Report, add func(string, error) error) error {
	if len(r.Profiles) > 0 {
		if err := add(w.csv.WriteProfiles(w.name(r, ProfilesFile), r.Profiles, r.Eligible)); err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
	}
	if len(r.Aggregate) > 0 {
		if err := add(w.csv.WriteAggregate(w.name(r, AggregateFile), r.Aggregate)); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
	}
	if !r.Clipped.Empty() {
		if err := add(w.csv.WriteSeries(w.name(r, SeriesFile), r.Raw, r.Clipped, r.Clip, r.Split)); err != nil {
			return fmt.Errorf("series: %w", err)
		}
	}
	if r.Accuracy != nil {
		if err := add(w.csv.WriteAccuracy(w.name(r, AccuracyFile), *r.Accuracy)); err != nil {
			return fmt.Errorf("accuracy: %w", err)
		}
	}
	if r.Forecasts != nil {
		if err := add(w.csv.WriteForecasts(w.name(r, ForecastFile), *r.Forecasts)); err != nil {
			return fmt.Errorf("forecasts: %w", err)
		}
	}
	if len(r.Folds) > 0 {
		if err := add(w.csv.WriteCVPlan(w.name(r, CVPlanFile), r.Folds)); err != nil {
			return fmt.Errorf("cv plan: %w", err)
		}
	}
	if r.CV != nil && len(r.CV.Scores) > 0 {
		if err := add(w.csv.WriteCVScores(w.name(r, CVScoresFile), *r.CV)); err != nil {
			return fmt.Errorf("cv scores: %w", err)
		}
	}
	return nil
}
