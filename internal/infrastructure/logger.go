package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wellcast/internal/config"
)

// logState owns the process logger and the log file behind it
type logState struct {
	once   sync.Once
	mu     sync.Mutex
	logger *slog.Logger
	file   *os.File
}

var process = &logState{}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// InitializeLogger builds the process logger once and installs it as the
// slog default. Records are JSON; cfg.Output picks console, file or both.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	process.once.Do(func() {
		var w io.Writer
		w, err = process.output(cfg, os.Stdout)
		if err != nil {
			return
		}
		process.logger = slog.New(newRunHandler(w, cfg.Level, cfg.Development))
		slog.SetDefault(process.logger)
	})
	return process.logger, err
}

// GetLogger returns the process logger, or slog's default before
// InitializeLogger has run
func GetLogger() *slog.Logger {
	if process.logger == nil {
		return slog.Default()
	}
	return process.logger
}

// NewLogger builds a standalone JSON logger on w that leaves process state
// alone. Tests and library callers use it.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(newRunHandler(w, level, false))
}

func (s *logState) output(cfg config.LoggingConfig, console io.Writer) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return console, nil
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	s.mu.Lock()
	s.file = f
	s.mu.Unlock()

	if mode == "file" {
		return f, nil
	}
	return io.MultiWriter(console, f), nil
}

// CloseLogFile releases the log file opened by InitializeLogger
func CloseLogFile() error {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.file == nil {
		return nil
	}
	err := process.file.Close()
	process.file = nil
	return err
}

// ResetLoggerForTesting drops the process logger so the next
// InitializeLogger call builds a new one
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	process = &logState{}
}

// runHandler stamps every record logged with a run context with its run id
type runHandler struct {
	slog.Handler
}

func newRunHandler(w io.Writer, level string, addSource bool) *runHandler {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}
	return &runHandler{Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: addSource,
		Level:     lvl,
	})}
}

func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String(traceIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{Handler: h.Handler.WithGroup(name)}
}
