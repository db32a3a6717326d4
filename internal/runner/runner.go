package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/osacfin/reclass-cc14/internal/calendar"
	"github.com/osacfin/reclass-cc14/internal/ledger"
	"github.com/osacfin/reclass-cc14/internal/reclass"
	"github.com/osacfin/reclass-cc14/internal/reclassapi"
	"github.com/osacfin/reclass-cc14/internal/report"
	"github.com/osacfin/reclass-cc14/internal/telemetry"
)

// ProcessName identifies this automation in telemetry backends.
const ProcessName = "ctb-reclassificar_conta_de_juros_cc_14"

// totalSteps is the fixed length of the step table.
const totalSteps = 9

// Gate decides whether today's run should start.
type Gate interface {
	ShouldRun(now time.Time) bool
}

// Fetcher retrieves the raw record set for a reporting period.
type Fetcher interface {
	Fetch(ctx context.Context, periodStart, periodEnd time.Time) ([]reclass.RawRecord, error)
}

// Poster submits ledger entries to the accounting API.
type Poster interface {
	Post(ctx context.Context, entries []ledger.Entry, postingDate time.Time) error
}

// Authenticator obtains a document-store access token.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
}

// Uploader stores the report in the document store and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, content []byte, filename, token string) (string, error)
}

// Archiver keeps an optional long-term copy of the report.
type Archiver interface {
	Enabled() bool
	Store(ctx context.Context, objectName string, content []byte) error
}

// Notifier delivers human-readable status messages.
type Notifier interface {
	NotifySuccess(credits []reclass.RawRecord, debit *reclass.FinanceDebit, fileURL string) error
	NotifyError(message string) error
	NotifyNoData() error
}

// Runner sequences the nine steps of a reclassification run and applies
// the failure policy: fetch, transform, post, and auth failures are fatal;
// upload and notification failures degrade to warnings.
type Runner struct {
	Gate    Gate
	Fetcher Fetcher
	Poster  Poster
	Auth    Authenticator
	Upload  Uploader
	Archive Archiver
	Notify  Notifier
	Tracker telemetry.Tracker

	AccountCode int
	ProjectCode int

	Log zerolog.Logger
	Now func() time.Time
}

// Run executes one end-to-end run. A nil return means either a completed
// run or a gate no-op; any non-nil error is fatal and the process should
// exit non-zero.
func (r *Runner) Run(ctx context.Context) (err error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	// Step 1: business-day gate, before any telemetry is opened. A negative
	// answer is a no-op run, not a failure.
	if !r.Gate.ShouldRun(now()) {
		r.Log.Info().Msg("Run skipped: not an execution day")
		return nil
	}

	sess := telemetry.NewSession(r.Tracker, ProcessName, r.Log)
	sess.Begin(ctx)

	// Anything outside the anticipated per-step failures is caught once
	// here, recorded as Failed, and surfaced to the process boundary.
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("unexpected error: %v", p)
			sess.Fail(ctx, msg)
			err = errors.New(msg)
		}
	}()

	// The gate already passed; record it as the first completed step.
	r.step(ctx, sess, "business-day gate", 1, func() error { return nil })

	// Step 2: reporting period. Pure; no failure path.
	var periodStart, periodEnd time.Time
	r.step(ctx, sess, "period calculation", 2, func() error {
		periodStart, periodEnd = calendar.PreviousMonth(now())
		r.Log.Info().
			Str("period_start", calendar.FormatAPIDate(periodStart)).
			Str("period_end", calendar.FormatAPIDate(periodEnd)).
			Msg("Reporting period computed")
		return nil
	})

	// Step 3: fetch. Empty or failed result is fatal.
	var records []reclass.RawRecord
	if err := r.step(ctx, sess, "fetch reclassification data", 3, func() error {
		var fetchErr error
		records, fetchErr = r.Fetcher.Fetch(ctx, periodStart, periodEnd)
		return fetchErr
	}); err != nil {
		if errors.Is(err, reclassapi.ErrNoData) {
			r.notifyNoData()
		} else {
			r.notifyError(err.Error())
		}
		sess.Fail(ctx, err.Error())
		return fmt.Errorf("fetch step: %w", err)
	}

	// Step 4: transform. Malformed data or an empty credit set is an
	// unrecoverable data issue.
	var result *reclass.Result
	if err := r.step(ctx, sess, "transform", 4, func() error {
		var tErr error
		result, tErr = reclass.Transform(records, r.Log)
		if tErr != nil {
			return tErr
		}
		if len(result.CreditLines) == 0 {
			return errors.New("transform produced no credit lines")
		}
		return nil
	}); err != nil {
		r.notifyError(err.Error())
		sess.Fail(ctx, err.Error())
		return fmt.Errorf("transform step: %w", err)
	}

	// Step 5: build ledger entries. Pure construction.
	var entries []ledger.Entry
	r.step(ctx, sess, "build ledger entries", 5, func() error {
		entries = ledger.Build(result, r.AccountCode, r.ProjectCode)
		r.Log.Info().Int("entries", len(entries)).Msg("Ledger entries built")
		return nil
	})

	// Step 6: post. Rejection or unreachability is fatal.
	if err := r.step(ctx, sess, "post ledger entries", 6, func() error {
		return r.Poster.Post(ctx, entries, periodEnd)
	}); err != nil {
		r.notifyError(err.Error())
		sess.Fail(ctx, err.Error())
		return fmt.Errorf("post step: %w", err)
	}

	// Step 7: document-store authentication. Fatal, with a dedicated
	// notification.
	var token string
	if err := r.step(ctx, sess, "authenticate document store", 7, func() error {
		var authErr error
		token, authErr = r.Auth.Token(ctx)
		return authErr
	}); err != nil {
		r.notifyError("Falha na autenticação Microsoft Graph")
		sess.Fail(ctx, err.Error())
		return fmt.Errorf("auth step: %w", err)
	}

	// Step 8: report upload. Non-fatal: the run continues without a link.
	var fileURL string
	if err := r.step(ctx, sess, "upload report", 8, func() error {
		content, genErr := report.Generate(result.FullRecords)
		if genErr != nil {
			return genErr
		}
		filename := report.Filename(periodEnd)

		if r.Archive != nil && r.Archive.Enabled() {
			if archErr := r.Archive.Store(ctx, filename, content); archErr != nil {
				r.Log.Warn().Err(archErr).Msg("Report archive copy failed; continuing")
			}
		}

		var upErr error
		fileURL, upErr = r.Upload.Upload(ctx, content, filename, token)
		return upErr
	}); err != nil {
		r.Log.Warn().Err(err).Msg("Report upload failed; continuing without a link")
	}

	// Step 9: success notification. Best-effort; the run is completed
	// regardless of delivery.
	notifyErr := r.step(ctx, sess, "send success notification", 9, func() error {
		return r.Notify.NotifySuccess(result.CreditLines, result.FinanceDebit, fileURL)
	})
	sess.Complete(ctx)
	if notifyErr != nil {
		r.Log.Warn().Err(notifyErr).Msg("Success notification failed; run already completed")
	}

	r.Log.Info().Msg("Reclassification run finished")
	return nil
}

// step executes one step under a telemetry guard. The guard's step-end
// call fires on every exit path, including a panic unwinding through the
// step body. Progress advances only when the step completes.
func (r *Runner) step(ctx context.Context, sess *telemetry.Session, name string, order int, fn func() error) error {
	guard := sess.StartStep(ctx, name, order)
	defer func() {
		if p := recover(); p != nil {
			guard.Fail(ctx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	err := fn()
	if err != nil {
		guard.Fail(ctx, err)
		return err
	}
	guard.Complete(ctx)
	sess.Progress(ctx, progressFor(order))
	return nil
}

// progressFor maps a step order to the percentage reported after it:
// order/9*100, rounded.
func progressFor(order int) int {
	return int(math.Round(float64(order) / totalSteps * 100))
}

func (r *Runner) notifyError(msg string) {
	if err := r.Notify.NotifyError(msg); err != nil {
		r.Log.Warn().Err(err).Msg("Error notification failed")
	}
}

func (r *Runner) notifyNoData() {
	if err := r.Notify.NotifyNoData(); err != nil {
		r.Log.Warn().Err(err).Msg("No-data notification failed")
	}
}
