package telemetry

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const (
	runsTable  = "execution_runs"
	stepsTable = "execution_steps"
)

// runRow is the execution_runs insert shape.
type runRow struct {
	RunID       string     `bigquery:"run_id"`
	ProcessName string     `bigquery:"process_name"`
	StartedAt   time.Time  `bigquery:"started_ts"`
	RunDate     civil.Date `bigquery:"run_date"`
	Status      string     `bigquery:"status"`
	ProgressPct int        `bigquery:"progress_pct"`
}

// stepRow is the execution_steps insert shape.
type stepRow struct {
	RunID     string    `bigquery:"run_id"`
	StepName  string    `bigquery:"step_name"`
	StepOrder int       `bigquery:"step_order"`
	StartedAt time.Time `bigquery:"started_ts"`
	Status    string    `bigquery:"status"`
}

// BigQueryTracker persists runs and steps to BigQuery. Starts are streaming
// inserts; ends and progress are DML updates keyed by run_id.
type BigQueryTracker struct {
	client  *bigquery.Client
	dataset string
	log     zerolog.Logger
}

// NewBigQueryTracker connects to the project. credsFile may be empty when
// application-default credentials apply.
func NewBigQueryTracker(ctx context.Context, projectID, dataset, credsFile string, log zerolog.Logger) (*BigQueryTracker, error) {
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTracker: creating client: %w", err)
	}
	return &BigQueryTracker{client: client, dataset: dataset, log: log}, nil
}

// Close releases the underlying client.
func (t *BigQueryTracker) Close() error {
	return t.client.Close()
}

func (t *BigQueryTracker) StartRun(ctx context.Context, run *RunState) {
	row := &runRow{
		RunID:       run.RunID,
		ProcessName: run.ProcessName,
		StartedAt:   run.StartedAt,
		RunDate:     civil.DateOf(run.StartedAt),
		Status:      string(StatusRunning),
	}
	ins := t.client.Dataset(t.dataset).Table(runsTable).Inserter()
	if err := ins.Put(ctx, row); err != nil {
		t.log.Warn().Err(err).Str("run_id", run.RunID).Msg("Telemetry run insert failed")
	}
}

func (t *BigQueryTracker) UpdateProgress(ctx context.Context, runID string, pct int) {
	q := t.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET progress_pct = @pct
		WHERE run_id = @run_id
	`, t.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "pct", Value: pct},
		{Name: "run_id", Value: runID},
	}
	t.run(ctx, q, "progress update")
}

func (t *BigQueryTracker) EndRun(ctx context.Context, run *RunState) {
	q := t.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    progress_pct = @pct,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, t.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(run.Status)},
		{Name: "finished_ts", Value: run.EndedAt},
		{Name: "pct", Value: run.ProgressPct},
		{Name: "error_message", Value: run.ErrorMsg},
		{Name: "run_id", Value: run.RunID},
	}
	t.run(ctx, q, "run end")
}

func (t *BigQueryTracker) StartStep(ctx context.Context, runID, name string, order int, at time.Time) {
	row := &stepRow{
		RunID:     runID,
		StepName:  name,
		StepOrder: order,
		StartedAt: at,
		Status:    string(StatusRunning),
	}
	ins := t.client.Dataset(t.dataset).Table(stepsTable).Inserter()
	if err := ins.Put(ctx, row); err != nil {
		t.log.Warn().Err(err).Str("run_id", runID).Int("step", order).Msg("Telemetry step insert failed")
	}
}

func (t *BigQueryTracker) EndStep(ctx context.Context, runID, name string, order int, status Status, errMsg string, at time.Time) {
	q := t.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id AND step_order = @step_order
	`, t.dataset, stepsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "finished_ts", Value: at},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
		{Name: "step_order", Value: order},
	}
	t.run(ctx, q, "step end")
}

// run executes a DML statement and downgrades any failure to a warning.
func (t *BigQueryTracker) run(ctx context.Context, q *bigquery.Query, what string) {
	job, err := q.Run(ctx)
	if err != nil {
		t.log.Warn().Err(err).Str("what", what).Msg("Telemetry query failed")
		return
	}
	status, err := job.Wait(ctx)
	if err != nil {
		t.log.Warn().Err(err).Str("what", what).Msg("Telemetry query wait failed")
		return
	}
	if err := status.Err(); err != nil {
		t.log.Warn().Err(err).Str("what", what).Msg("Telemetry query completed with error")
	}
}
