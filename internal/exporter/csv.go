package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"wellcast/internal/config"
)

// utf8BOM lets spreadsheet tools detect the encoding
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes run tables into the output directory
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at paths.OutputDir
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// Table is one CSV artifact held in memory
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// WriteTable creates or truncates t.Name and returns the written path
func (w *CSVWriter) WriteTable(t Table) (string, error) {
	rs, err := w.Stream(t.Name, t.Headers)
	if err != nil {
		return "", err
	}
	for i, row := range t.Rows {
		if err := rs.Write(row); err != nil {
			rs.Close()
			return "", fmt.Errorf("row %d of %s: %w", i+1, t.Name, err)
		}
	}
	if err := rs.Close(); err != nil {
		return "", err
	}
	return rs.Path(), nil
}

// RowStream writes a table one row at a time
type RowStream struct {
	f      *os.File
	cw     *csv.Writer
	path   string
	rows   int
	logger *slog.Logger
}

// Stream opens name for writing, emits the byte order mark and the header
func (w *CSVWriter) Stream(name string, headers []string) (*RowStream, error) {
	path := w.resolve(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}

	rs := &RowStream{f: f, cw: csv.NewWriter(f), path: path, logger: w.logger}
	if len(headers) > 0 {
		if err := rs.cw.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return rs, nil
}

// Write adds one row
func (s *RowStream) Write(row []string) error {
	if err := s.cw.Write(row); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Path is the absolute location of the table
func (s *RowStream) Path() string { return s.path }

// Close flushes buffered rows and closes the file
func (s *RowStream) Close() error {
	s.cw.Flush()
	if err := s.cw.Error(); err != nil {
		s.f.Close()
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	s.logger.Debug("csv written", slog.String("path", s.path), slog.Int("rows", s.rows))
	return nil
}

// resolve places relative names in the output directory
func (w *CSVWriter) resolve(name string) string {
	if filepath.IsAbs(name) || w.paths == nil {
		return name
	}
	return filepath.Join(w.paths.OutputDir, name)
}
