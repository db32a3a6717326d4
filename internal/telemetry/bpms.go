package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/osacfin/reclass-cc14/internal/httpx"
)

// Process metadata the BPMS endpoint expects on the opening call.
const (
	bpmsProcessName  = "ctb-Reclassificar Conta de Juros CC 14"
	bpmsFlowName     = "ctb-reclassificar_conta_de_juros_cc_14"
	bpmsFrequency    = "Mensal (Dia útil 3 às 02:00 am)"
	bpmsFlowType     = "Go"
	bpmsArtifactType = "Lançamento Mega"
	bpmsFlowVersion  = "Fluxo v1."
	bpmsTimestampFmt = "2006-01-02 15:04:05.000 -0700"
)

// BPMSTracker reports run telemetry to the BPMS HTTP endpoint. The BPMS
// data model has no step granularity, so step calls only log locally.
type BPMSTracker struct {
	http         *httpx.Client
	baseURL      string
	token        string
	inProduction bool
	log          zerolog.Logger
}

func NewBPMSTracker(http *httpx.Client, baseURL, token string, inProduction bool, log zerolog.Logger) *BPMSTracker {
	return &BPMSTracker{
		http:         http,
		baseURL:      baseURL,
		token:        token,
		inProduction: inProduction,
		log:          log,
	}
}

func (t *BPMSTracker) StartRun(ctx context.Context, run *RunState) {
	prodFlag := "FALSE"
	if t.inProduction {
		prodFlag = "TRUE"
	}
	t.post(ctx, "tabentregaveisprimeirodis", map[string]any{
		"id_disparo":         run.RunID,
		"nome_processo":      bpmsProcessName,
		"nome_fluxo":         bpmsFlowName,
		"frequencia_disparo": bpmsFrequency,
		"horarios_disparo":   run.StartedAt.Format("15:04"),
		"tipo_fluxo":         bpmsFlowType,
		"data_inicio":        run.StartedAt.Format(bpmsTimestampFmt),
		"status":             "Em andamento",
		"em_producao":        prodFlag,
	})
	t.post(ctx, "tabentregaveisrpasegdisp", map[string]any{
		"id_disparo":         run.RunID,
		"tipo_arquivo":       bpmsArtifactType,
		"progresso":          0,
		"resultado_esperado": 1,
	})
}

func (t *BPMSTracker) UpdateProgress(ctx context.Context, runID string, pct int) {
	t.post(ctx, "tabentregupdateprogress", map[string]any{
		"id_disparo": runID,
		"progresso":  pct,
	})
}

func (t *BPMSTracker) EndRun(ctx context.Context, run *RunState) {
	endedAt := run.EndedAt.Format(bpmsTimestampFmt)
	switch run.Status {
	case StatusCompleted:
		t.post(ctx, "tabentregaveisconclposit", map[string]any{
			"id_disparo":         run.RunID,
			"data_fim":           endedAt,
			"status":             "Concluído",
			"progresso":          run.ProgressPct,
			"resultado_entregue": "1",
			"dados_adicionais":   bpmsFlowVersion + " Esperado: 1 | Sucesso: 1 | Falha: 0.",
		})
	default:
		t.post(ctx, "tabentregaveiserro", map[string]any{
			"id_disparo":         run.RunID,
			"data_fim":           endedAt,
			"status":             "Falha",
			"progresso":          run.ProgressPct,
			"resultado_entregue": "0",
			"dados_adicionais":   bpmsFlowVersion + " Esperado: 1 | Sucesso: 0 | Falha: 1.",
			"erros":              run.ErrorMsg,
		})
	}
}

func (t *BPMSTracker) StartStep(_ context.Context, runID, name string, order int, _ time.Time) {
	t.log.Debug().Str("run_id", runID).Int("step", order).Str("name", name).Msg("BPMS has no step endpoint; step start not persisted")
}

func (t *BPMSTracker) EndStep(_ context.Context, runID, name string, order int, status Status, _ string, _ time.Time) {
	t.log.Debug().Str("run_id", runID).Int("step", order).Str("name", name).Str("status", string(status)).Msg("BPMS has no step endpoint; step end not persisted")
}

// post delivers one telemetry event. Failures are warnings; telemetry
// never aborts the business process.
func (t *BPMSTracker) post(ctx context.Context, endpoint string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		t.log.Warn().Err(err).Str("endpoint", endpoint).Msg("BPMS payload marshal failed")
		return
	}

	headers := map[string]string{
		"Authorization": "Bearer " + t.token,
		"Content-Type":  "application/json",
	}
	if _, _, err := t.http.Do(ctx, http.MethodPost, t.baseURL+"/"+endpoint, headers, body); err != nil {
		t.log.Warn().Err(err).Str("endpoint", endpoint).Msg("BPMS telemetry call failed")
		return
	}
	t.log.Debug().Str("endpoint", endpoint).Msg("BPMS telemetry recorded")
}
