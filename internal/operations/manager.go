package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wellcast/internal/infrastructure"
)

// Manager executes registered steps strictly in order
type Manager struct {
	registry *Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *infrastructure.PipelineMetrics
}

// NewManager creates a manager. A nil logger uses slog.Default, a nil
// tracer the global provider, and nil metrics disables recording.
func NewManager(registry *Registry, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	return &Manager{registry: registry, logger: logger, tracer: tracer, metrics: metrics}
}

// RegisterStep adds a step to the end of the pipeline
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Run executes every step over state. The first failure fails the run
// and marks the remaining steps skipped; it is returned as an
// *OperationError naming the step.
func (m *Manager) Run(ctx context.Context, state *RunState) error {
	steps := m.registry.List()
	if len(steps) == 0 {
		err := NewFatalError("no steps registered", nil)
		state.Fail(err)
		return err
	}

	ctx, span := m.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.Int("run.steps", len(steps)),
		))
	defer span.End()

	for _, step := range steps {
		state.SetStep(NewStepState(step.ID(), step.Name()))
	}
	state.Start()

	m.logger.InfoContext(ctx, "run_started",
		slog.String("run_id", state.ID),
		slog.String("input", state.Input),
		slog.Int("step_count", len(steps)))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			opErr := NewCancellationError(step.ID(), err)
			m.logger.WarnContext(ctx, "run_cancelled",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "run cancelled")
			state.Cancel(opErr)
			span.SetStatus(codes.Error, opErr.Error())
			return opErr
		}

		m.logger.InfoContext(ctx, "executing_step",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			state.Fail(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.logger.ErrorContext(ctx, "run_failed",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()),
				slog.Duration("duration", state.Duration()))
			return err
		}
	}

	state.Complete()
	m.logger.InfoContext(ctx, "run_completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", state.Duration()))
	return nil
}

// executeStep validates and runs one step inside its own span
func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	st := state.GetStep(step.ID())

	ctx, span := m.tracer.Start(ctx, "step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		))
	defer span.End()

	st.Start()
	start := time.Now()

	if err := step.Validate(state); err != nil {
		opErr := NewValidationError(step.ID(), err)
		m.finishStep(ctx, st, time.Since(start), opErr)
		return opErr
	}

	if err := step.Execute(ctx, state); err != nil {
		opErr := NewExecutionError(step.ID(), err)
		m.finishStep(ctx, st, time.Since(start), opErr)
		return opErr
	}

	m.finishStep(ctx, st, time.Since(start), nil)
	return nil
}

func (m *Manager) finishStep(ctx context.Context, st *StepState, duration time.Duration, err error) {
	infrastructure.RecordStepMetrics(ctx, m.metrics, st.ID, duration, err)
	if err != nil {
		st.Fail(err)
		infrastructure.RecordError(ctx, err)
		m.logger.ErrorContext(ctx, "step_failed",
			slog.String("step", st.ID),
			slog.Duration("duration", duration),
			slog.String("error_type", string(GetErrorType(err))),
			slog.String("error", err.Error()))
		return
	}
	st.Complete()
	m.logger.InfoContext(ctx, "step_completed",
		slog.String("step", st.ID),
		slog.Duration("duration", duration))
}

func (m *Manager) skipRemaining(state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		if st := state.GetStep(step.ID()); st != nil && st.Status == StepStatusPending {
			st.Skip(reason)
		}
	}
}
