package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/logger"
	"github.com/osacfin/reclass-cc14/internal/reclass"
)

// Notifier posts HTML status messages to a Teams channel through a Power
// Automate webhook. Best-effort by contract: callers log failures and move
// on. Dry-run suppresses delivery unless the SharePoint/Teams test flag
// re-enables it.
type Notifier struct {
	http        *httpx.Client
	webhookURL  string
	accountCode int
	simulate    bool
	log         zerolog.Logger
	now         func() time.Time
}

func New(http *httpx.Client, webhookURL string, accountCode int, simulate bool, log zerolog.Logger) *Notifier {
	return &Notifier{
		http:        http,
		webhookURL:  webhookURL,
		accountCode: accountCode,
		simulate:    simulate,
		log:         log,
		now:         time.Now,
	}
}

// NotifySuccess sends the run summary: one table row per credit line, one
// debit row for the finance directorate, and the SharePoint link when the
// upload produced one.
func (n *Notifier) NotifySuccess(credits []reclass.RawRecord, debit *reclass.FinanceDebit, fileURL string) error {
	var rows strings.Builder
	for _, rec := range credits {
		fmt.Fprintf(&rows,
			"<tr><td>%s</td><td>%d</td><td></td><td>%s</td></tr>",
			rec.CostCenter, n.accountCode, formatBRL(rec.CreditAmount))
	}
	if debit != nil {
		fmt.Fprintf(&rows,
			"<tr><td>%s</td><td></td><td>%d</td><td>%s</td></tr>",
			debit.CostCenterLabel, n.accountCode, formatBRL(debit.Amount))
	}

	link := ""
	if fileURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Relatório no SharePoint</a></p>`, fileURL)
	}

	html := fmt.Sprintf(`<html><body>
<p style="color:#2e7d32;font-weight:bold">✅ ctb-Reclassificar conta de juros cc 14 %d de %s:</p>
%s
<table border="1" style="border-collapse:collapse">
<thead><tr><th>CENTROCUSTO</th><th>C</th><th>D</th><th>VALORRAZÃO</th></tr></thead>
<tbody>%s</tbody>
</table>
</body></html>`,
		n.accountCode, n.today(), link, rows.String())

	return n.send(html, "SUCESSO")
}

// NotifyError reports a fatal failure. The message is sanitized before it
// leaves the process: credentials are never forwarded to the channel.
func (n *Notifier) NotifyError(message string) error {
	sanitized := logger.SanitizeError(message, 300)
	html := fmt.Sprintf(`<html><body>
<p style="color:#d32f2f;font-weight:bold">❌ Falha ctb_Reclassificar conta de juros cc 14</p>
<p><b>Erro:</b> %s</p>
<p><b>Executado em:</b> %s</p>
</body></html>`,
		sanitized, n.today())

	return n.send(html, "ERRO")
}

// NotifyNoData reports that the period produced no records.
func (n *Notifier) NotifyNoData() error {
	html := fmt.Sprintf(`<html><body>
<p style="color:#f57c00;font-weight:bold">⚠️ Sem dados retornados na chamada de ctb_Reclassificar conta de juros cc 14</p>
<p><b>Realizada em:</b> %s</p>
</body></html>`,
		n.today())

	return n.send(html, "AVISO")
}

func (n *Notifier) send(html, kind string) error {
	if n.simulate {
		n.log.Info().Str("kind", kind).Msg("[DRY_RUN] Suppressing Teams notification")
		return nil
	}
	if n.webhookURL == "" {
		return errors.New("send: POWER_AUTOMATE_WEBHOOK_URL not configured")
	}

	// The webhook flow expects a single messageBody field.
	compact := strings.Join(strings.Fields(html), " ")
	payload, err := json.Marshal(map[string]string{"messageBody": compact})
	if err != nil {
		return fmt.Errorf("send: marshaling payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if _, _, err := n.http.Do(context.Background(), http.MethodPost, n.webhookURL, headers, payload); err != nil {
		return fmt.Errorf("send: posting to webhook: %w", err)
	}

	n.log.Info().Str("kind", kind).Msg("Teams notification delivered")
	return nil
}

func (n *Notifier) today() string {
	return n.now().Format("02/01/2006")
}

// formatBRL renders an amount in the Brazilian convention:
// "R$ 1.234,56".
func formatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "R$ " + grouped.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
