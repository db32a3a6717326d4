package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment-backed setting the process recognizes.
// Values come from the environment, optionally seeded from a .env file
// loaded by Load before parsing.
type Config struct {
	// Azure AD / Microsoft Graph (SharePoint upload)
	TenantID     string `env:"TENANT_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	SiteID       string `env:"SITE_ID"`
	DriveItemID  string `env:"DRIVE_ITEM_ID"`

	// External APIs
	ReclassAPIURL   string `env:"RECLASS_API_URL" envDefault:"https://integra.odilonsantos.com/api/Bpms/reclassificajuros"`
	ReclassAPIToken string `env:"API_RECLASSIFICACAO_TOKEN"`
	PostingAPIURL   string `env:"POSTING_API_URL" envDefault:"http://integra.odilonsantos.com/api/MegaIntegrador/lancamento-contabil"`
	PostingAPIToken string `env:"API_LANCAMENTO_TOKEN"`

	// Teams notifications (Power Automate webhook)
	TeamsWebhookURL string `env:"POWER_AUTOMATE_WEBHOOK_URL"`

	// Business constants
	CompanyCode int `env:"EMPRESA_CONSOLIDADORA" envDefault:"15534"`
	BatchNumber int `env:"NUM_LOTE" envDefault:"10401"`
	AccountCode int `env:"DADO_COMPARATIVO_TABELA" envDefault:"1829"`
	ProjectCode int `env:"PROJETO_REDUZIDO" envDefault:"192"`

	// Telemetry (BPMS HTTP endpoint and/or BigQuery datastore)
	TelemetryEnabled bool   `env:"BPMS_ENABLED" envDefault:"true"`
	TelemetryURL     string `env:"BPMS_BASE_URL"`
	TelemetryToken   string `env:"BPMS_TOKEN"`
	InProduction     bool   `env:"EM_PRODUCAO" envDefault:"false"`
	BQProjectID      string `env:"BQ_PROJECT_ID"`
	BQDataset        string `env:"BQ_DATASET" envDefault:"ops"`

	// Report archive (optional GCS copy of the Excel report)
	ArchiveBucket   string `env:"ARCHIVE_BUCKET"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`

	// Calendar and logs
	HolidayFile string `env:"HOLIDAY_CALENDAR_FILE"`
	LogDir      string `env:"LOG_DIR"`

	// Mode flags
	ForceExecution     bool `env:"FORCAR_EXECUCAO" envDefault:"false"`
	DryRun             bool `env:"DRY_RUN" envDefault:"false"`
	TestSharePointTeam bool `env:"TEST_SHAREPOINT_TEAMS" envDefault:"false"`
}

// Load seeds the environment from .env (when present) and parses it into a
// Config. A missing .env file is not an error; the scheduler environment
// usually injects variables directly.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("Load: reading .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("Load: parsing environment: %w", err)
	}

	return cfg, nil
}

// MissingCritical lists the critical variables that are unset. The process
// still starts without them (dry runs need none), but the gaps are logged
// up front so a production misconfiguration is visible before step three.
func (c *Config) MissingCritical() []string {
	checks := []struct {
		name  string
		value string
	}{
		{"API_RECLASSIFICACAO_TOKEN", c.ReclassAPIToken},
		{"API_LANCAMENTO_TOKEN", c.PostingAPIToken},
		{"POWER_AUTOMATE_WEBHOOK_URL", c.TeamsWebhookURL},
		{"TENANT_ID", c.TenantID},
		{"CLIENT_ID", c.ClientID},
		{"CLIENT_SECRET", c.ClientSecret},
	}

	var missing []string
	for _, chk := range checks {
		if chk.value == "" {
			missing = append(missing, chk.name)
		}
	}
	return missing
}
