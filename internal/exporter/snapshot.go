package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// SnapshotOptions controls the headless browser capture
type SnapshotOptions struct {
	Width    int
	Height   int
	Timeout  time.Duration
	Headless bool
}

// Snapshot renders an HTML chart page in headless Chrome and saves a PNG
// screenshot of the viewport
func Snapshot(ctx context.Context, htmlPath, pngPath string, opts SnapshotOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("failed to resolve chart path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("chart page: %w", err)
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, opts.Timeout)
		defer cancelTimeout()
	}

	start := time.Now()
	var buf []byte
	if err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitVisible("svg", chromedp.ByQuery),
		chromedp.CaptureScreenshot(&buf),
	); err != nil {
		return fmt.Errorf("failed to capture chart: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(pngPath, buf, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	logger.InfoContext(ctx, "chart snapshot written",
		slog.String("path", pngPath),
		slog.Int("bytes", len(buf)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
