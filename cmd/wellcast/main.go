// Wellcast cleans monthly well production, evaluates forecasting models on
// the aggregate (or a single well) and writes forecasts with reports.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wellcast/internal/config"
	"wellcast/internal/exporter"
	"wellcast/internal/infrastructure"
	"wellcast/internal/operations"
)

// Build-time variables (set via -ldflags).
var (
	version = config.AppVersion
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("wellcast failed", "error", err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand
type app struct {
	configFile string
	outputDir  string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "wellcast",
		Short:         "Forecast oil and gas well production",
		Long:          "Clean historical well production, compare forecasting models on a held-out window and write forecasts with CSV, JSON, workbook, PDF and chart reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (default: ./wellcast.yaml)")
	root.PersistentFlags().StringVar(&a.outputDir, "out", "", "output directory override")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newWellCmd(a),
		newProfileCmd(a),
		newSnapshotCmd(a),
	)
	return root
}

// load reads the configuration and applies flag overrides
func (a *app) load() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.outputDir != "" {
		cfg.Paths.OutputDir = a.outputDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(a.logLevel)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wellcast %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", commit)
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the aggregate pipeline",
		Long:  "Select eligible wells, aggregate their production, evaluate every configured model on the test window and forecast the horizon.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, input, "", operations.NewAggregatePipeline)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "production file (CSV or XLSX)")
	return cmd
}

func newWellCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "well WELL_ID",
		Short: "Forecast a single well",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, input, args[0], operations.NewWellPipeline)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "production file (CSV or XLSX)")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Write per-well production profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, input, "", operations.NewProfilePipeline)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "production file (CSV or XLSX)")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var htmlPath, pngPath string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render an HTML chart to PNG in headless Chrome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := exporter.SnapshotOptions{
				Width:    a.cfg.Render.Width,
				Height:   a.cfg.Render.Height,
				Timeout:  a.cfg.Render.ChromeTimeout,
				Headless: true,
			}
			if err := exporter.Snapshot(cmd.Context(), htmlPath, pngPath, opts, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pngPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "chart page to render")
	cmd.Flags().StringVar(&pngPath, "png", "", "screenshot destination")
	_ = cmd.MarkFlagRequired("html")
	_ = cmd.MarkFlagRequired("png")
	return cmd
}

type pipelineFactory func(operations.Dependencies) (*operations.Manager, error)

// execute builds one pipeline, runs it and prints the written artifacts
func (a *app) execute(cmd *cobra.Command, input, wellID string, build pipelineFactory) error {
	if input != "" {
		a.cfg.Paths.Input = input
	}
	if a.cfg.Paths.Input == "" {
		return fmt.Errorf("no input file: pass --input or set paths.input")
	}

	paths, err := config.ResolvePaths(a.cfg.Paths, "")
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	paths.LogPathResolution(a.logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(a.cfg.Telemetry), a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	runtimeMetrics, err := infrastructure.NewRuntimeMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	ctx, runID := infrastructure.ContextWithRunID(cmd.Context())

	manager, err := build(operations.Dependencies{
		Config:  a.cfg,
		Paths:   paths,
		Logger:  a.logger,
		Tracer:  providers.Tracer,
		Metrics: providers.Metrics,
	})
	if err != nil {
		return err
	}

	state := operations.NewRunState(runID, paths.InputFile)
	state.WellID = wellID
	runErr := manager.Run(ctx, state)
	stats := runtimeMetrics.Collect(ctx, state.StartTime)
	if runErr != nil {
		return runErr
	}

	a.logger.InfoContext(ctx, "run completed",
		"run_id", runID,
		"duration", state.Duration().String(),
		"artifacts", len(state.Artifacts),
		"heap_alloc_bytes", stats.HeapAllocBytes,
		"gc_count", stats.GCCount)
	for _, path := range state.Artifacts {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
