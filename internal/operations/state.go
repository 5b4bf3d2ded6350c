package operations

import (
	"time"

	"wellcast/internal/config"
	"wellcast/internal/evaluation"
	"wellcast/internal/exporter"
	"wellcast/internal/forecast"
	"wellcast/internal/production"
	"wellcast/internal/series"
	"wellcast/internal/stationarity"
	"wellcast/internal/wells"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState is the complete state of one pipeline run. Each step fills in
// its own section; the zero value of a section means the step has not run.
type RunState struct {
	ID        string
	Input     string
	WellID    string // set for per-well runs
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	Steps map[string]*StepState
	Order []string

	Records   []production.Record
	Selection *wells.Selection
	Aggregate []wells.AggregateRow
	Raw       series.Series
	Clipped   series.Series
	Clip      *series.ClipReport
	Diagnosis *stationarity.Diagnosis
	Split     *series.SplitPlan
	Accuracy  *evaluation.Report
	Folds     []evaluation.Fold
	CV        *evaluation.CVReport
	Forecasts *forecast.Set
	Artifacts []string
}

// NewRunState creates the state for a run reading input
func NewRunState(id, input string) *RunState {
	return &RunState{
		ID:     id,
		Input:  input,
		Status: RunStatusPending,
		Steps:  make(map[string]*StepState),
	}
}

// Start marks the run as running
func (s *RunState) Start() {
	s.Status = RunStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as completed
func (s *RunState) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusFailed
	s.Error = err
}

// Cancel marks the run as cancelled
func (s *RunState) Cancel(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusCancelled
	s.Error = err
}

// GetStep returns the state of a specific step
func (s *RunState) GetStep(id string) *StepState {
	return s.Steps[id]
}

// SetStep records the state of a step, keeping first-seen order
func (s *RunState) SetStep(st *StepState) {
	if _, ok := s.Steps[st.ID]; !ok {
		s.Order = append(s.Order, st.ID)
	}
	s.Steps[st.ID] = st
}

// StepStates returns step states in execution order
func (s *RunState) StepStates() []*StepState {
	out := make([]*StepState, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.Steps[id])
	}
	return out
}

// Duration returns how long the run took, or has taken so far
func (s *RunState) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Report collects what the run produced for the exporters
func (s *RunState) Report(cfg *config.Config) *exporter.Report {
	r := &exporter.Report{
		RunID:       s.ID,
		Prefix:      s.WellID,
		Target:      cfg.Pipeline.Target,
		Input:       s.Input,
		GeneratedAt: time.Now().UTC(),
		Aggregate:   s.Aggregate,
		Raw:         s.Raw,
		Clipped:     s.Clipped,
		Clip:        s.Clip,
		Diagnosis:   s.Diagnosis,
		Split:       s.Split,
		Accuracy:    s.Accuracy,
		Folds:       s.Folds,
		CV:          s.CV,
		Forecasts:   s.Forecasts,
		Config:      cfg,
	}
	r.Counts.Records = len(s.Records)
	if sel := s.Selection; sel != nil {
		r.Profiles = sel.Profiles
		r.Eligible = sel.Eligible
		r.Counts.Wells = len(sel.Profiles)
		r.Counts.Eligible = len(sel.Eligible)
		r.Counts.Dropped = sel.Dropped
	}
	return r
}
