package operations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcast/internal/config"
	apierrors "wellcast/internal/errors"
	"wellcast/internal/exporter"
	"wellcast/internal/infrastructure"
)

// recordStep appends its id to a shared log when executed
type recordStep struct {
	BaseStep
	log         *[]string
	err         error
	validateErr error
}

func newRecordStep(id string, log *[]string) *recordStep {
	return &recordStep{BaseStep: NewBaseStep(id, "step "+id), log: log}
}

func (s *recordStep) Validate(state *RunState) error { return s.validateErr }

func (s *recordStep) Execute(ctx context.Context, state *RunState) error {
	*s.log = append(*s.log, s.ID())
	return s.err
}

func quietLogger() *bytes.Buffer { return &bytes.Buffer{} }

func newTestManager(steps ...Step) *Manager {
	m := NewManager(nil, infrastructure.NewLogger(quietLogger(), "error"), nil, nil)
	for _, s := range steps {
		if err := m.RegisterStep(s); err != nil {
			panic(err)
		}
	}
	return m
}

func statuses(state *RunState) []StepStatus {
	var out []StepStatus
	for _, st := range state.StepStates() {
		out = append(out, st.Status)
	}
	return out
}

func TestRegistry(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Register(newRecordStep("b", &log)))
	require.NoError(t, r.Register(newRecordStep("a", &log)))

	assert.Error(t, r.Register(newRecordStep("a", &log)))
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newRecordStep("", &log)))

	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("a"))
	ids := []string{}
	for _, s := range r.List() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"b", "a"}, ids)

	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestManager_Run(t *testing.T) {
	var log []string
	m := newTestManager(newRecordStep("one", &log), newRecordStep("two", &log), newRecordStep("three", &log))

	state := NewRunState("run", "in.csv")
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, []string{"one", "two", "three"}, log)
	assert.Equal(t, RunStatusCompleted, state.Status)
	assert.Equal(t, []StepStatus{StepStatusCompleted, StepStatusCompleted, StepStatusCompleted}, statuses(state))
	for _, st := range state.StepStates() {
		assert.False(t, st.Started.IsZero())
		assert.False(t, st.Finished.IsZero())
	}
}

func TestManager_FailureSkipsLaterSteps(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	failing := newRecordStep("two", &log)
	failing.err = boom
	m := newTestManager(newRecordStep("one", &log), failing, newRecordStep("three", &log))

	state := NewRunState("run", "in.csv")
	err := m.Run(context.Background(), state)
	require.Error(t, err)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))
	assert.Equal(t, "two", FailedStep(err))
	assert.Equal(t, []string{"one", "two"}, log)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Equal(t, []StepStatus{StepStatusCompleted, StepStatusFailed, StepStatusSkipped}, statuses(state))
	assert.Contains(t, state.GetStep("three").Message, "two")
	assert.Equal(t, err, state.GetStep("two").Err)
}

func TestManager_ValidationFailure(t *testing.T) {
	var log []string
	invalid := newRecordStep("one", &log)
	invalid.validateErr = errors.New("not ready")
	m := newTestManager(invalid, newRecordStep("two", &log))

	state := NewRunState("run", "")
	err := m.Run(context.Background(), state)
	require.Error(t, err)

	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.Empty(t, log)
	assert.Equal(t, []StepStatus{StepStatusFailed, StepStatusSkipped}, statuses(state))
}

func TestManager_Cancelled(t *testing.T) {
	var log []string
	m := newTestManager(newRecordStep("one", &log), newRecordStep("two", &log))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := NewRunState("run", "")
	err := m.Run(ctx, state)
	require.Error(t, err)

	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
	assert.Equal(t, RunStatusCancelled, state.Status)
	assert.Equal(t, []StepStatus{StepStatusSkipped, StepStatusSkipped}, statuses(state))
}

func TestManager_NoSteps(t *testing.T) {
	state := NewRunState("run", "")
	err := newTestManager().Run(context.Background(), state)
	assert.Equal(t, ErrorTypeFatal, GetErrorType(err))
	assert.Equal(t, RunStatusFailed, state.Status)
}

func TestOperationError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewExecutionError("export", cause)
	assert.Equal(t, "[execution] export: step execution failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "[fatal] bad setup", NewFatalError("bad setup", nil).Error())
	assert.Equal(t, ErrorTypeExecution, GetErrorType(cause))
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, "", FailedStep(cause))

	wrapped := fmt.Errorf("run: %w", NewValidationError("split", cause))
	assert.Equal(t, ErrorTypeValidation, GetErrorType(wrapped))
	assert.Equal(t, "split", FailedStep(wrapped))
}

func TestStepState(t *testing.T) {
	st := NewStepState("load", "Load")
	assert.Equal(t, StepStatusPending, st.Status)
	assert.Zero(t, st.Duration())

	st.Start()
	assert.Equal(t, StepStatusRunning, st.Status)
	st.Fail(errors.New("bad file"))
	assert.Equal(t, StepStatusFailed, st.Status)
	assert.Equal(t, "bad file", st.Message)
	assert.GreaterOrEqual(t, st.Duration(), time.Duration(0))
}

// writeProduction writes two long-lived wells over 2008-2012 and one
// short-lived well
func writeProduction(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("well_id,period,oil,gas\n")
	start := time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		period := start.AddDate(0, i, 0).Format("2006-01-02")
		season := 30 * math.Sin(2*math.Pi*float64(i)/12)
		w1 := 1200*math.Exp(-0.02*float64(i)) + season
		w2 := 800 - 4*float64(i) + season/2
		fmt.Fprintf(&b, "W1,%s,%.2f,%.2f\n", period, w1, 2.5*w1)
		fmt.Fprintf(&b, "W2,%s,%.2f,%.2f\n", period, w2, 1.5*w2)
	}
	for i := 0; i < 10; i++ {
		period := time.Date(2012, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		fmt.Fprintf(&b, "W3,%s,50,60\n", period)
	}

	path := filepath.Join(t.TempDir(), "production.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func testDependencies(t *testing.T) Dependencies {
	t.Helper()
	cfg := config.Default()
	cfg.Render.PNG = false
	return Dependencies{
		Config: cfg,
		Paths:  &config.Paths{OutputDir: t.TempDir()},
		Logger: infrastructure.NewLogger(quietLogger(), "error"),
	}
}

func TestAggregatePipeline(t *testing.T) {
	deps := testDependencies(t)
	m, err := NewAggregatePipeline(deps)
	require.NoError(t, err)
	assert.Equal(t, 11, m.GetRegistry().Count())

	state := NewRunState("run-1", writeProduction(t))
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, RunStatusCompleted, state.Status)
	assert.Len(t, state.Records, 130)
	require.NotNil(t, state.Selection)
	assert.Equal(t, []string{"W1", "W2"}, state.Selection.Eligible)
	assert.Len(t, state.Aggregate, 60)

	// the date cut keeps 2010 onwards
	require.Equal(t, 36, state.Raw.Len())
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), state.Raw.First().Date)
	assert.Equal(t, 36, state.Clipped.Len())
	require.NotNil(t, state.Clip)
	assert.NotNil(t, state.Diagnosis)

	require.NotNil(t, state.Split)
	assert.Equal(t, 24, state.Split.Training.Len())
	assert.Equal(t, 12, state.Split.Testing.Len())

	require.NotNil(t, state.Accuracy)
	assert.Len(t, state.Accuracy.Entries, len(deps.Config.Models))
	assert.Len(t, state.Folds, 3)
	require.NotNil(t, state.CV)
	assert.Len(t, state.CV.Summary, len(deps.Config.Models))

	require.NotNil(t, state.Forecasts)
	assert.Equal(t, 6, state.Forecasts.Horizon)
	assert.NotEmpty(t, state.Forecasts.Successful())

	for _, name := range []string{
		exporter.ProfilesFile, exporter.AggregateFile, exporter.SeriesFile, exporter.AccuracyFile,
		exporter.ForecastFile, exporter.CVPlanFile, exporter.SummaryFile, exporter.WorkbookFile,
		exporter.PDFFile, exporter.ChartFile,
	} {
		path := filepath.Join(deps.Paths.OutputDir, name)
		assert.Contains(t, state.Artifacts, path)
		assert.FileExists(t, path)
	}
	for _, st := range state.StepStates() {
		assert.Equal(t, StepStatusCompleted, st.Status, st.ID)
	}
}

func TestAggregatePipeline_MissingInput(t *testing.T) {
	deps := testDependencies(t)
	m, err := NewAggregatePipeline(deps)
	require.NoError(t, err)

	state := NewRunState("run-1", filepath.Join(t.TempDir(), "none.csv"))
	err = m.Run(context.Background(), state)
	require.Error(t, err)

	assert.Equal(t, StepLoad, FailedStep(err))
	assert.Equal(t, StepStatusSkipped, state.GetStep(StepExport).Status)
	assert.Empty(t, state.Artifacts)
}

func TestAggregatePipeline_RecordsMetrics(t *testing.T) {
	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.MetricsFile = filepath.Join(t.TempDir(), "wellcast.prom")
	providers, err := infrastructure.InitializeOTel(otelCfg, infrastructure.NewLogger(quietLogger(), "error"))
	require.NoError(t, err)

	deps := testDependencies(t)
	deps.Config.Render = config.RenderConfig{JSON: true}
	deps.Tracer = providers.Tracer
	deps.Metrics = providers.Metrics

	m, err := NewAggregatePipeline(deps)
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background(), NewRunState("run-1", writeProduction(t))))
	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(otelCfg.MetricsFile)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "wellcast_step_executions_total")
	assert.Contains(t, text, `step="evaluate"`)
	assert.Contains(t, text, "wellcast_records_loaded_total")
	assert.Contains(t, text, "wellcast_model_fits_total")
}

func TestWellPipeline(t *testing.T) {
	deps := testDependencies(t)
	deps.Config.Render = config.RenderConfig{CSV: true, JSON: true}
	m, err := NewWellPipeline(deps)
	require.NoError(t, err)

	state := NewRunState("run-2", writeProduction(t))
	state.WellID = "W1"
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, 36, state.Clipped.Len())
	require.NotNil(t, state.Split)
	// 20% of 36 rounds up to 8
	assert.Equal(t, 8, state.Split.Testing.Len())
	require.NotNil(t, state.Forecasts)
	assert.Equal(t, "W1_oil", state.Clipped.Name)

	assert.FileExists(t, filepath.Join(deps.Paths.OutputDir, "W1_"+exporter.SummaryFile))
	assert.FileExists(t, filepath.Join(deps.Paths.OutputDir, "W1_"+exporter.ForecastFile))
}

func TestWellPipeline_UnknownWell(t *testing.T) {
	deps := testDependencies(t)
	m, err := NewWellPipeline(deps)
	require.NoError(t, err)

	for _, id := range []string{"W9", "W3"} {
		state := NewRunState("run-3", writeProduction(t))
		state.WellID = id
		err = m.Run(context.Background(), state)
		require.Error(t, err, id)
		assert.Equal(t, StepWellForecast, FailedStep(err))
		assert.Equal(t, "UNKNOWN_WELL", apierrors.CodeOf(err))
	}
}

func TestProfilePipeline(t *testing.T) {
	deps := testDependencies(t)
	m, err := NewProfilePipeline(deps)
	require.NoError(t, err)

	state := NewRunState("run-4", writeProduction(t))
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, []string{filepath.Join(deps.Paths.OutputDir, exporter.ProfilesFile)}, state.Artifacts)
	assert.Len(t, state.Selection.Profiles, 3)
}

func TestPipelines_RequireDependencies(t *testing.T) {
	_, err := NewAggregatePipeline(Dependencies{})
	assert.Equal(t, ErrorTypeFatal, GetErrorType(err))

	_, err = NewWellPipeline(Dependencies{Config: config.Default()})
	assert.Equal(t, ErrorTypeFatal, GetErrorType(err))

	deps := testDependencies(t)
	deps.Config.Models = append(deps.Config.Models, config.ModelConfig{Name: "odd", Kind: "prophet"})
	_, err = NewAggregatePipeline(deps)
	assert.True(t, apierrors.IsKind(err, apierrors.KindConfig))
}
