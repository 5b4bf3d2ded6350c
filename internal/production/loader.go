package production

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	apierrors "wellcast/internal/errors"
)

// Loader reads production records from CSV or XLSX files
type Loader struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewLoader creates a loader; a nil logger falls back to slog.Default()
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger.With("component", "loader"),
		validate: validator.New(),
	}
}

// Load reads all records from path. The format is chosen by extension.
// Any unparseable date or volume fails the whole load.
func (l *Loader) Load(ctx context.Context, path string) ([]Record, error) {
	l.logger.InfoContext(ctx, "loading production records", "path", path)

	var (
		records []Record
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		file, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open input file: %w", openErr)
		}
		defer file.Close()
		records, err = l.ReadCSV(ctx, file)
	case ".xlsx", ".xlsm":
		file, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open input file: %w", openErr)
		}
		defer file.Close()
		records, err = l.ReadXLSX(ctx, file)
	default:
		return nil, apierrors.InvalidInput("load", fmt.Sprintf("unsupported input format %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "production records loaded",
		"path", filepath.Base(path),
		"records", len(records),
		"wells", len(WellIDs(records)),
	)
	return records, nil
}

// ReadCSV parses comma-separated records with a header row
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}
	return l.parseRows(ctx, rows, false)
}

// ReadXLSX parses the first worksheet whose header names the required columns
func (l *Loader) ReadXLSX(ctx context.Context, r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var missing string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) == 0 {
			continue
		}
		if _, col := resolveColumns(rows[0]); col != "" {
			if missing == "" {
				missing = col
			}
			continue
		}
		l.logger.DebugContext(ctx, "using worksheet", "sheet", sheet, "rows", len(rows))
		return l.parseRows(ctx, rows, true)
	}

	if missing == "" {
		return nil, apierrors.InvalidInput("load", "workbook has no non-empty worksheet")
	}
	return nil, apierrors.MissingColumn(missing)
}

// parseRows converts header plus data rows into records. Line numbers in
// errors are 1-based with the header on line 1.
func (l *Loader) parseRows(ctx context.Context, rows [][]string, serialDates bool) ([]Record, error) {
	if len(rows) == 0 {
		return nil, apierrors.InvalidInput("load", "input file is empty")
	}

	cols, missing := resolveColumns(rows[0])
	if missing != "" {
		return nil, apierrors.MissingColumn(missing)
	}

	records := make([]Record, 0, len(rows)-1)
	skipped := 0
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			skipped++
			continue
		}

		rec, err := l.parseRecord(row, cols, i+1, serialDates)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		l.logger.DebugContext(ctx, "skipped blank rows", "count", skipped)
	}

	SortRecords(records)
	return records, nil
}

func (l *Loader) parseRecord(row []string, cols columnIndex, line int, serialDates bool) (Record, error) {
	period, err := parsePeriod(cols.cell(row, "period"), serialDates)
	if err != nil {
		return Record{}, apierrors.DataFormat(line, "period", err)
	}

	oil, err := parseVolume(cols.cell(row, "oil"))
	if err != nil {
		return Record{}, apierrors.DataFormat(line, "oil", err)
	}

	gas, err := parseVolume(cols.cell(row, "gas"))
	if err != nil {
		return Record{}, apierrors.DataFormat(line, "gas", err)
	}

	rec := Record{
		WellID: cols.cell(row, "well_id"),
		Period: period,
		Oil:    oil,
		Gas:    gas,
	}

	if err := l.validate.Struct(rec); err != nil {
		field := "record"
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field = recordField(verrs[0].StructField())
		}
		return Record{}, apierrors.DataFormat(line, field, err)
	}

	return rec, nil
}

// recordField maps a struct field name to its input column name
func recordField(structField string) string {
	switch structField {
	case "WellID":
		return "well_id"
	case "Oil":
		return "oil"
	case "Gas":
		return "gas"
	default:
		return strings.ToLower(structField)
	}
}

// parsePeriod accepts ISO dates and year-month values. Workbook cells that
// hold a date number are converted from the Excel serial form.
func parsePeriod(s string, serialDates bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}

	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if serialDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, err
			}
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}

// parseVolume reads a non-negative volume; an empty cell means no production
func parseVolume(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse volume %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("volume %q is not finite", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("volume %g is negative", v)
	}
	return v, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
