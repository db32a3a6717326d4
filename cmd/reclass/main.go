package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/osacfin/reclass-cc14/internal/accounting"
	"github.com/osacfin/reclass-cc14/internal/archive"
	"github.com/osacfin/reclass-cc14/internal/calendar"
	"github.com/osacfin/reclass-cc14/internal/config"
	"github.com/osacfin/reclass-cc14/internal/graph"
	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/logger"
	"github.com/osacfin/reclass-cc14/internal/notify"
	"github.com/osacfin/reclass-cc14/internal/reclassapi"
	"github.com/osacfin/reclass-cc14/internal/runner"
	"github.com/osacfin/reclass-cc14/internal/telemetry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	flagForce  bool
	flagDryRun bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reclass-cc14",
		Short: "Monthly interest-reclassification automation for cost center 14",
		Long: `reclass-cc14 runs the monthly interest-reclassification process:
it fetches reclassification records for the previous month, posts balanced
credit/debit ledger entries, uploads the Excel report to SharePoint and
notifies the Teams channel. Scheduled for the third business day of each
month, with a manual override and a dry-run mode.`,
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one reclassification run (no-op outside the scheduled day)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute()
		},
	}
	runCmd.Flags().BoolVar(&flagForce, "force", false, "run regardless of the business-day schedule")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "suppress posting, upload and notification side effects")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if flagForce {
		cfg.ForceExecution = true
	}
	if flagDryRun {
		cfg.DryRun = true
	}

	log, closer, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if missing := cfg.MissingCritical(); len(missing) > 0 {
		log.Warn().Str("variables", strings.Join(missing, ", ")).Msg("Critical environment variables missing")
	}
	if cfg.DryRun {
		log.Info().Bool("test_sharepoint_teams", cfg.TestSharePointTeam).Msg("Dry-run mode active")
	}

	ctx := logger.WithContext(context.Background(), log)

	r, cleanup, err := buildRunner(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}
	defer cleanup()

	if err := r.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Run failed")
		return err
	}
	return nil
}

func buildLogger(cfg *config.Config) (zerolog.Logger, interface{ Close() error }, error) {
	if cfg.LogDir == "" {
		return logger.New(), nil, nil
	}
	return logger.NewWithFile(cfg.LogDir, runner.ProcessName)
}

func buildRunner(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*runner.Runner, func(), error) {
	// The original rates: 10 fetch calls and 5 posting calls per minute.
	fetchHTTP := httpx.New(60*time.Second, rate.NewLimiter(rate.Every(6*time.Second), 10), log)
	postHTTP := httpx.New(120*time.Second, rate.NewLimiter(rate.Every(12*time.Second), 5), log)
	graphHTTP := httpx.New(60*time.Second, nil, log)
	hookHTTP := httpx.New(30*time.Second, nil, log)

	cal := calendar.NewBrazil()
	if cfg.HolidayFile != "" {
		if err := cal.LoadExtraHolidays(cfg.HolidayFile); err != nil {
			return nil, nil, fmt.Errorf("buildRunner: %w", err)
		}
	}

	// Dry-run suppresses SharePoint and Teams traffic unless the test flag
	// re-enables those two collaborators.
	simulate := cfg.DryRun && !cfg.TestSharePointTeam

	tracker, cleanup := buildTracker(ctx, cfg, hookHTTP, log)

	r := &runner.Runner{
		Gate:    calendar.NewGate(cal, cfg.ForceExecution, log),
		Fetcher: reclassapi.New(fetchHTTP, cfg.ReclassAPIURL, cfg.ReclassAPIToken, cfg.AccountCode, cfg.CompanyCode, log),
		Poster:  accounting.New(postHTTP, cfg.PostingAPIURL, cfg.PostingAPIToken, cfg.CompanyCode, cfg.BatchNumber, cfg.DryRun, log),
		Auth:    graph.NewAuthenticator(graphHTTP, cfg.TenantID, cfg.ClientID, cfg.ClientSecret, simulate, log),
		Upload:  graph.NewUploader(graphHTTP, cfg.SiteID, cfg.DriveItemID, simulate, log),
		Archive: archive.New(cfg.ArchiveBucket, cfg.CredentialsFile, log),
		Notify:  notify.New(hookHTTP, cfg.TeamsWebhookURL, cfg.AccountCode, simulate, log),
		Tracker: tracker,

		AccountCode: cfg.AccountCode,
		ProjectCode: cfg.ProjectCode,
		Log:         log,
	}
	return r, cleanup, nil
}

// buildTracker assembles the telemetry backends: the BPMS endpoint and the
// BigQuery datastore can run side by side; with neither configured the
// whole subsystem is a no-op.
func buildTracker(ctx context.Context, cfg *config.Config, hookHTTP *httpx.Client, log zerolog.Logger) (telemetry.Tracker, func()) {
	cleanup := func() {}
	if !cfg.TelemetryEnabled {
		log.Info().Msg("Telemetry disabled")
		return telemetry.Noop{}, cleanup
	}

	var trackers telemetry.Multi
	if cfg.TelemetryURL != "" {
		trackers = append(trackers, telemetry.NewBPMSTracker(hookHTTP, cfg.TelemetryURL, cfg.TelemetryToken, cfg.InProduction, log))
	}
	if cfg.BQProjectID != "" {
		bq, err := telemetry.NewBigQueryTracker(ctx, cfg.BQProjectID, cfg.BQDataset, cfg.CredentialsFile, log)
		if err != nil {
			log.Warn().Err(err).Msg("BigQuery telemetry unavailable; continuing without it")
		} else {
			trackers = append(trackers, bq)
			cleanup = func() { _ = bq.Close() }
		}
	}

	if len(trackers) == 0 {
		log.Info().Msg("No telemetry backend configured; telemetry is a no-op")
		return telemetry.Noop{}, cleanup
	}
	return trackers, cleanup
}
