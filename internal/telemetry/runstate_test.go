package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestNewRunState(t *testing.T) {
	started := time.Date(2025, time.September, 3, 9, 0, 0, 0, time.UTC)
	run := NewRunState("ctb-reclassificar_conta_de_juros_cc_14", started)

	if run.RunID == "" {
		t.Error("run must receive an identifier")
	}
	if run.Status != StatusRunning {
		t.Errorf("initial status = %s, want RUNNING", run.Status)
	}
	if run.ProgressPct != 0 {
		t.Errorf("initial progress = %d, want 0", run.ProgressPct)
	}

	other := NewRunState("ctb-reclassificar_conta_de_juros_cc_14", started)
	if other.RunID == run.RunID {
		t.Error("run identifiers must be unique")
	}
}

func TestRunState_SetProgressMonotone(t *testing.T) {
	run := NewRunState("p", time.Now())

	run.SetProgress(33)
	if run.ProgressPct != 33 {
		t.Fatalf("progress = %d, want 33", run.ProgressPct)
	}

	run.SetProgress(22) // lower values never regress
	if run.ProgressPct != 33 {
		t.Errorf("progress regressed to %d", run.ProgressPct)
	}

	run.SetProgress(150)
	if run.ProgressPct != 100 {
		t.Errorf("progress = %d, want clamp at 100", run.ProgressPct)
	}
}

func TestRunState_FinalizeOnce(t *testing.T) {
	run := NewRunState("p", time.Now())
	at := time.Now()

	if !run.Finalize(StatusFailed, "boom", at) {
		t.Fatal("first finalize must take effect")
	}
	if run.Finalize(StatusCompleted, "", at) {
		t.Error("second finalize must be a no-op")
	}
	if run.Status != StatusFailed || run.ErrorMsg != "boom" {
		t.Errorf("terminal state = %s/%q, want FAILED/boom", run.Status, run.ErrorMsg)
	}
	if !run.Finalized() {
		t.Error("Finalized must report a terminal state")
	}
}

func TestRunState_CompleteForcesFullProgress(t *testing.T) {
	run := NewRunState("p", time.Now())
	run.SetProgress(89)
	run.Finalize(StatusCompleted, "", time.Now())
	if run.ProgressPct != 100 {
		t.Errorf("completed run progress = %d, want 100", run.ProgressPct)
	}
}

func TestRunState_StepHistory(t *testing.T) {
	run := NewRunState("p", time.Now())
	t0 := time.Date(2025, time.September, 3, 9, 0, 0, 0, time.UTC)

	run.StartStep("fetch", 3, t0)
	if run.CurrentStep != "fetch" {
		t.Errorf("current step = %q, want fetch", run.CurrentStep)
	}

	name := run.EndStep(3, StatusCompleted, "", t0.Add(time.Second))
	if name != "fetch" {
		t.Errorf("EndStep returned %q, want fetch", name)
	}
	if len(run.Steps) != 1 {
		t.Fatalf("step history length = %d, want 1", len(run.Steps))
	}
	if run.Steps[0].Status != StatusCompleted || !run.Steps[0].EndedAt.Equal(t0.Add(time.Second)) {
		t.Errorf("unexpected step record: %+v", run.Steps[0])
	}

	if got := run.EndStep(42, StatusFailed, "x", t0); got != "" {
		t.Errorf("unknown order must be ignored, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxErrorLen+500)
	if got := Truncate(long); len(got) != maxErrorLen {
		t.Errorf("truncated length = %d, want %d", len(got), maxErrorLen)
	}
	if got := Truncate("short"); got != "short" {
		t.Errorf("short message must be untouched, got %q", got)
	}
}
