package reclassapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/osacfin/reclass-cc14/internal/calendar"
	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/reclass"
)

// ErrNoData signals that the API answered successfully but returned an
// empty record set. The orchestrator treats it as fatal but notifies it
// differently from a transport failure.
var ErrNoData = errors.New("reclassification API returned no records")

// Client fetches raw reclassification records for a reporting period.
type Client struct {
	http        *httpx.Client
	url         string
	token       string
	accountCode int
	companyCode int
	log         zerolog.Logger
}

// New builds a fetcher client. The account and company codes are part of
// the query payload, not of the records themselves.
func New(http *httpx.Client, url, token string, accountCode, companyCode int, log zerolog.Logger) *Client {
	return &Client{
		http:        http,
		url:         url,
		token:       token,
		accountCode: accountCode,
		companyCode: companyCode,
		log:         log,
	}
}

type fetchRequest struct {
	ReducedAccount string `json:"ContaReduzido"`
	Company        string `json:"Empresa"`
	StartDate      string `json:"DataInicial"`
	EndDate        string `json:"DataFinal"`
}

type fetchResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    []recordPayload `json:"data"`
}

// recordPayload is the loose JSON shape of one record; Fetch validates it
// into a typed RawRecord and rejects malformed entries.
type recordPayload struct {
	BranchCode        json.Number `json:"FIL_IN_CODIGO"`
	CostCenter        string      `json:"CENTROCUSTO"`
	CostCenterReduced json.Number `json:"CUS_IN_REDUZIDO"`
	Account           string      `json:"CONTA"`
	CreditAmount      json.Number `json:"VALORCREDITO"`
}

// Fetch retrieves the record set for the period. Transport errors, an
// unsuccessful API answer, and malformed records all fail the fetch; an
// empty record set returns ErrNoData.
func (c *Client) Fetch(ctx context.Context, periodStart, periodEnd time.Time) ([]reclass.RawRecord, error) {
	if c.token == "" {
		return nil, errors.New("Fetch: API_RECLASSIFICACAO_TOKEN not configured")
	}

	payload, err := json.Marshal(fetchRequest{
		ReducedAccount: fmt.Sprint(c.accountCode),
		Company:        fmt.Sprint(c.companyCode),
		StartDate:      calendar.FormatAPIDate(periodStart),
		EndDate:        calendar.FormatAPIDate(periodEnd),
	})
	if err != nil {
		return nil, fmt.Errorf("Fetch: marshaling request: %w", err)
	}

	c.log.Info().
		Str("period_start", calendar.FormatAPIDate(periodStart)).
		Str("period_end", calendar.FormatAPIDate(periodEnd)).
		Msg("Fetching reclassification records")

	headers := map[string]string{
		"Authorization": "Bearer " + c.token,
		"Content-Type":  "application/json",
	}
	body, _, err := c.http.Do(ctx, http.MethodPost, c.url, headers, payload)
	if err != nil {
		return nil, fmt.Errorf("Fetch: calling API: %w", err)
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("Fetch: decoding response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("Fetch: API rejected the query: %s", resp.Message)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoData
	}

	records := make([]reclass.RawRecord, 0, len(resp.Data))
	for i, p := range resp.Data {
		rec, err := p.toRecord(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	c.log.Info().Int("records", len(records)).Msg("Reclassification records fetched")
	return records, nil
}

func (p recordPayload) toRecord(index int) (reclass.RawRecord, error) {
	branch, err := p.BranchCode.Int64()
	if err != nil {
		return reclass.RawRecord{}, &reclass.TransformError{
			Index: index, Field: "FIL_IN_CODIGO", Reason: "not an integer",
		}
	}
	reduced, err := p.CostCenterReduced.Int64()
	if err != nil {
		return reclass.RawRecord{}, &reclass.TransformError{
			Index: index, Field: "CUS_IN_REDUZIDO", Reason: "not an integer",
		}
	}
	amount, err := decimal.NewFromString(p.CreditAmount.String())
	if err != nil {
		return reclass.RawRecord{}, &reclass.TransformError{
			Index: index, Field: "VALORCREDITO", Reason: "unparsable amount",
		}
	}
	if p.CostCenter == "" {
		return reclass.RawRecord{}, &reclass.TransformError{
			Index: index, Field: "CENTROCUSTO", Reason: "missing",
		}
	}

	return reclass.RawRecord{
		BranchCode:        int(branch),
		CostCenter:        p.CostCenter,
		CostCenterReduced: int(reduced),
		Account:           p.Account,
		CreditAmount:      amount,
	}, nil
}
