// Package exporter writes the artifacts of a forecasting run.
//
// CSVWriter is the shared CSV primitive: headers, streaming and a UTF-8 BOM
// so spreadsheet tools detect the encoding. Writer builds on it and renders
// a Report into every configured format:
//
//   - CSV tables: profiles, aggregate rows, clipped series, accuracy,
//     forecasts and the cross-validation plan
//   - a JSON run summary
//   - an Excel workbook with a forecast chart
//   - a PDF report
//   - an HTML chart, optionally captured to PNG with headless Chrome
//
// Example usage:
//
//	w := exporter.NewWriter(paths, cfg.Render, logger)
//	files, err := w.WriteAll(ctx, report)
package exporter
