package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved file locations for one run.
// Everything is derived from the injected configuration, never from the
// process working directory at call sites.
type Paths struct {
	InputFile string
	OutputDir string
	LogsDir   string
}

// ResolvePaths makes the configured locations absolute relative to baseDir.
// An empty baseDir means the directory the command was started in.
func ResolvePaths(cfg PathsConfig, baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	return &Paths{
		InputFile: abs(cfg.Input),
		OutputDir: abs(cfg.OutputDir),
		LogsDir:   abs(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates the output and log directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetOutputPath returns the path of an artifact in the output directory.
// A non-empty prefix (for example a well id) is prepended to the file name.
func (p *Paths) GetOutputPath(prefix, filename string) string {
	if prefix != "" {
		filename = SafeFileName(prefix) + "_" + filename
	}
	return filepath.Join(p.OutputDir, filename)
}

// SafeFileName replaces characters that are not portable in file names
func SafeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("resolved paths",
		slog.String("input_file", p.InputFile),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir))
}
