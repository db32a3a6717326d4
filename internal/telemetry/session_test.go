package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// captureTracker records calls for assertions in session tests.
type captureTracker struct {
	startRuns int
	endRuns   int
	progress  []int
	stepEnds  []Status
}

func (c *captureTracker) StartRun(context.Context, *RunState) { c.startRuns++ }

func (c *captureTracker) UpdateProgress(_ context.Context, _ string, pct int) {
	c.progress = append(c.progress, pct)
}

func (c *captureTracker) EndRun(context.Context, *RunState) { c.endRuns++ }

func (c *captureTracker) StartStep(context.Context, string, string, int, time.Time) {}

func (c *captureTracker) EndStep(_ context.Context, _, _ string, _ int, status Status, _ string, _ time.Time) {
	c.stepEnds = append(c.stepEnds, status)
}

func TestSession_CompleteIsIdempotent(t *testing.T) {
	tracker := &captureTracker{}
	sess := NewSession(tracker, "p", zerolog.Nop())
	ctx := context.Background()

	sess.Begin(ctx)
	sess.Complete(ctx)
	sess.Complete(ctx)
	sess.Fail(ctx, "late failure")

	if tracker.startRuns != 1 || tracker.endRuns != 1 {
		t.Errorf("start/end runs = %d/%d, want 1/1", tracker.startRuns, tracker.endRuns)
	}
	if sess.State.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED; a finalized run must not flip", sess.State.Status)
	}
}

func TestSession_ProgressFlowsThroughState(t *testing.T) {
	tracker := &captureTracker{}
	sess := NewSession(tracker, "p", zerolog.Nop())
	ctx := context.Background()

	sess.Progress(ctx, 33)
	sess.Progress(ctx, 22)

	// The backend always sees the state's monotone value.
	if len(tracker.progress) != 2 || tracker.progress[0] != 33 || tracker.progress[1] != 33 {
		t.Errorf("backend progress = %v, want [33 33]", tracker.progress)
	}
}

func TestStepGuard_FirstCallWins(t *testing.T) {
	tracker := &captureTracker{}
	sess := NewSession(tracker, "p", zerolog.Nop())
	ctx := context.Background()

	guard := sess.StartStep(ctx, "fetch", 3)
	guard.Complete(ctx)
	guard.Fail(ctx, context.DeadlineExceeded)

	if len(tracker.stepEnds) != 1 || tracker.stepEnds[0] != StatusCompleted {
		t.Errorf("step ends = %v, want one COMPLETED", tracker.stepEnds)
	}
	if sess.State.Steps[0].Status != StatusCompleted {
		t.Errorf("state step status = %s, want COMPLETED", sess.State.Steps[0].Status)
	}
}

func TestStepGuard_DeferredFailBacksUpCompletion(t *testing.T) {
	tracker := &captureTracker{}
	sess := NewSession(tracker, "p", zerolog.Nop())
	ctx := context.Background()

	run := func() {
		guard := sess.StartStep(ctx, "post", 6)
		defer guard.Fail(ctx, context.Canceled)
		// No Complete on this path.
	}
	run()

	if len(tracker.stepEnds) != 1 || tracker.stepEnds[0] != StatusFailed {
		t.Errorf("step ends = %v, want one FAILED", tracker.stepEnds)
	}
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &captureTracker{}, &captureTracker{}
	multi := Multi{a, b}
	ctx := context.Background()

	run := NewRunState("p", time.Now())
	multi.StartRun(ctx, run)
	multi.UpdateProgress(ctx, run.RunID, 50)
	multi.EndRun(ctx, run)

	for i, tr := range []*captureTracker{a, b} {
		if tr.startRuns != 1 || tr.endRuns != 1 || len(tr.progress) != 1 {
			t.Errorf("tracker %d missed calls: %+v", i, tr)
		}
	}
}
