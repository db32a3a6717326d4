package telemetry

import (
	"context"
	"time"
)

// Tracker persists run and step telemetry to a backend. Implementations
// must be defensive: a telemetry failure is logged by the implementation
// and never surfaces to the business flow, which is why no method returns
// an error.
type Tracker interface {
	StartRun(ctx context.Context, run *RunState)
	UpdateProgress(ctx context.Context, runID string, pct int)
	EndRun(ctx context.Context, run *RunState)
	StartStep(ctx context.Context, runID, name string, order int, at time.Time)
	EndStep(ctx context.Context, runID, name string, order int, status Status, errMsg string, at time.Time)
}

// Noop is the tracker used when no backend is configured.
type Noop struct{}

func (Noop) StartRun(context.Context, *RunState)                {}
func (Noop) UpdateProgress(context.Context, string, int)        {}
func (Noop) EndRun(context.Context, *RunState)                  {}
func (Noop) StartStep(context.Context, string, string, int, time.Time) {}
func (Noop) EndStep(context.Context, string, string, int, Status, string, time.Time) {
}

// Multi fans every call out to several trackers.
type Multi []Tracker

func (m Multi) StartRun(ctx context.Context, run *RunState) {
	for _, t := range m {
		t.StartRun(ctx, run)
	}
}

func (m Multi) UpdateProgress(ctx context.Context, runID string, pct int) {
	for _, t := range m {
		t.UpdateProgress(ctx, runID, pct)
	}
}

func (m Multi) EndRun(ctx context.Context, run *RunState) {
	for _, t := range m {
		t.EndRun(ctx, run)
	}
}

func (m Multi) StartStep(ctx context.Context, runID, name string, order int, at time.Time) {
	for _, t := range m {
		t.StartStep(ctx, runID, name, order, at)
	}
}

func (m Multi) EndStep(ctx context.Context, runID, name string, order int, status Status, errMsg string, at time.Time) {
	for _, t := range m {
		t.EndStep(ctx, runID, name, order, status, errMsg, at)
	}
}
