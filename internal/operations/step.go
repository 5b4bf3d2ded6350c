package operations

import (
	"context"
	"time"
)

// Step is one stage of a run. Steps communicate only through RunState:
// each reads what earlier steps stored and adds its own results.
type Step interface {
	ID() string
	Name() string
	// Validate reports missing inputs before Execute is called
	Validate(state *RunState) error
	Execute(ctx context.Context, state *RunState) error
}

// StepStatus is the lifecycle position of a step within one run
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState records what happened to one step. Started and Finished stay
// zero for skipped steps.
type StepState struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Started  time.Time  `json:"started"`
	Finished time.Time  `json:"finished"`
	Message  string     `json:"message,omitempty"`
	Err      error      `json:"-"`
}

// NewStepState creates a pending step state
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending}
}

func (s *StepState) Start() {
	s.Started = time.Now()
	s.Status = StepStatusRunning
}

func (s *StepState) Complete() {
	s.Finished = time.Now()
	s.Status = StepStatusCompleted
}

// Fail keeps err and its text for the run summary
func (s *StepState) Fail(err error) {
	s.Finished = time.Now()
	s.Status = StepStatusFailed
	s.Err = err
	if err != nil {
		s.Message = err.Error()
	}
}

func (s *StepState) Skip(reason string) {
	s.Status = StepStatusSkipped
	s.Message = reason
}

// Duration is the wall time of the step so far
func (s *StepState) Duration() time.Duration {
	switch {
	case s.Started.IsZero():
		return 0
	case s.Finished.IsZero():
		return time.Since(s.Started)
	default:
		return s.Finished.Sub(s.Started)
	}
}

// BaseStep carries a step's identity; embedding steps supply Execute and
// may override Validate
type BaseStep struct {
	id   string
	name string
}

func NewBaseStep(id, name string) BaseStep {
	return BaseStep{id: id, name: name}
}

func (b BaseStep) ID() string   { return b.id }
func (b BaseStep) Name() string { return b.name }

// Validate accepts any state
func (b BaseStep) Validate(*RunState) error { return nil }
