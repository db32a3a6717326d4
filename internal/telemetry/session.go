package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Session ties a RunState to a Tracker for the duration of one run. All
// tracker calls go through it so the state and the backend stay in step.
type Session struct {
	State   *RunState
	tracker Tracker
	log     zerolog.Logger
	now     func() time.Time
}

func NewSession(tracker Tracker, processName string, log zerolog.Logger) *Session {
	now := time.Now
	return &Session{
		State:   NewRunState(processName, now()),
		tracker: tracker,
		log:     log,
		now:     now,
	}
}

// Begin opens the run on the backend.
func (s *Session) Begin(ctx context.Context) {
	s.tracker.StartRun(ctx, s.State)
	s.log.Info().
		Str("run_id", s.State.RunID).
		Str("process", s.State.ProcessName).
		Msg("Run started")
}

// Progress raises the run progress.
func (s *Session) Progress(ctx context.Context, pct int) {
	s.State.SetProgress(pct)
	s.tracker.UpdateProgress(ctx, s.State.RunID, s.State.ProgressPct)
}

// Complete finalizes the run as completed.
func (s *Session) Complete(ctx context.Context) {
	if s.State.Finalize(StatusCompleted, "", s.now()) {
		s.tracker.EndRun(ctx, s.State)
		s.log.Info().Str("run_id", s.State.RunID).Msg("Run completed")
	}
}

// Fail finalizes the run as failed with the given message.
func (s *Session) Fail(ctx context.Context, errMsg string) {
	if s.State.Finalize(StatusFailed, errMsg, s.now()) {
		s.tracker.EndRun(ctx, s.State)
		s.log.Error().Str("run_id", s.State.RunID).Str("error", Truncate(errMsg)).Msg("Run failed")
	}
}

// Cancel finalizes the run as cancelled.
func (s *Session) Cancel(ctx context.Context, reason string) {
	if s.State.Finalize(StatusCancelled, reason, s.now()) {
		s.tracker.EndRun(ctx, s.State)
		s.log.Warn().Str("run_id", s.State.RunID).Str("reason", reason).Msg("Run cancelled")
	}
}

// StartStep opens a step and returns a guard whose End methods fire the
// step-end telemetry exactly once. Callers must close the guard on every
// exit path.
func (s *Session) StartStep(ctx context.Context, name string, order int) *StepGuard {
	at := s.now()
	s.State.StartStep(name, order, at)
	s.tracker.StartStep(ctx, s.State.RunID, name, order, at)
	s.log.Info().Int("step", order).Str("name", name).Msg("Step started")
	return &StepGuard{session: s, name: name, order: order}
}

// StepGuard closes one step. The first Complete or Fail wins; later calls
// are no-ops, so a deferred Fail can safely back up a normal Complete.
type StepGuard struct {
	session *Session
	name    string
	order   int
	done    bool
}

// Complete marks the step completed.
func (g *StepGuard) Complete(ctx context.Context) {
	g.end(ctx, StatusCompleted, "")
}

// Fail marks the step failed with the error's message.
func (g *StepGuard) Fail(ctx context.Context, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	g.end(ctx, StatusFailed, msg)
}

func (g *StepGuard) end(ctx context.Context, status Status, errMsg string) {
	if g.done {
		return
	}
	g.done = true

	at := g.session.now()
	g.session.State.EndStep(g.order, status, errMsg, at)
	g.session.tracker.EndStep(ctx, g.session.State.RunID, g.name, g.order, status, Truncate(errMsg), at)
	g.session.log.Info().
		Int("step", g.order).
		Str("name", g.name).
		Str("status", string(status)).
		Msg("Step finished")
}
