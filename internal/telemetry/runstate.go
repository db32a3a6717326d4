package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Status is a run or step lifecycle state.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// maxErrorLen caps persisted error messages.
const maxErrorLen = 2000

// StepRecord is one entry of a run's step history.
type StepRecord struct {
	Name      string
	Order     int
	StartedAt time.Time
	EndedAt   time.Time
	Status    Status
	Error     string
}

// RunState is the orchestrator's per-execution record. It is owned by a
// single run: created at run start, mutated at step boundaries, finalized
// exactly once. The step-name lookup lives here, scoped to the run, never
// in package state.
type RunState struct {
	RunID       string
	ProcessName string
	StartedAt   time.Time
	EndedAt     time.Time
	Status      Status
	ProgressPct int
	CurrentStep string
	ErrorMsg    string
	Steps       []StepRecord

	stepNames map[int]string
	finalized bool
}

// NewRunState opens a running state with a fresh run identifier.
func NewRunState(processName string, startedAt time.Time) *RunState {
	return &RunState{
		RunID:       uuid.NewString(),
		ProcessName: processName,
		StartedAt:   startedAt,
		Status:      StatusRunning,
		stepNames:   map[int]string{},
	}
}

// StartStep records a step start and makes it the current step.
func (r *RunState) StartStep(name string, order int, at time.Time) {
	r.stepNames[order] = name
	r.CurrentStep = name
	r.Steps = append(r.Steps, StepRecord{
		Name:      name,
		Order:     order,
		StartedAt: at,
		Status:    StatusRunning,
	})
}

// EndStep closes the most recent record for the given order and returns
// the step name. Unknown orders are ignored.
func (r *RunState) EndStep(order int, status Status, errMsg string, at time.Time) string {
	name, ok := r.stepNames[order]
	if !ok {
		return ""
	}
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if r.Steps[i].Order == order && r.Steps[i].Status == StatusRunning {
			r.Steps[i].EndedAt = at
			r.Steps[i].Status = status
			r.Steps[i].Error = Truncate(errMsg)
			break
		}
	}
	return name
}

// SetProgress raises the progress percentage. Progress is monotonically
// non-decreasing within a run and clamped to 0..100.
func (r *RunState) SetProgress(pct int) {
	if pct > 100 {
		pct = 100
	}
	if pct > r.ProgressPct {
		r.ProgressPct = pct
	}
}

// Finalize moves the run into a terminal state. Only the first call takes
// effect; it reports whether the transition happened.
func (r *RunState) Finalize(status Status, errMsg string, at time.Time) bool {
	if r.finalized {
		return false
	}
	r.finalized = true
	r.Status = status
	r.ErrorMsg = Truncate(errMsg)
	r.EndedAt = at
	if status == StatusCompleted {
		r.ProgressPct = 100
	}
	return true
}

// Finalized reports whether the run reached a terminal state.
func (r *RunState) Finalized() bool {
	return r.finalized
}

// Truncate caps a persisted error message.
func Truncate(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}
