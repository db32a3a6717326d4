package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/osacfin/reclass-cc14/internal/calendar"
	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/ledger"
)

// batchAction is the accounting API action code for a ledger batch insert.
const batchAction = 20

// Client posts ledger entries to the accounting API. In dry-run mode the
// payload is logged and the call is suppressed.
type Client struct {
	http        *httpx.Client
	url         string
	token       string
	companyCode int
	batchNumber int
	dryRun      bool
	log         zerolog.Logger
}

func New(http *httpx.Client, url, token string, companyCode, batchNumber int, dryRun bool, log zerolog.Logger) *Client {
	return &Client{
		http:        http,
		url:         url,
		token:       token,
		companyCode: companyCode,
		batchNumber: batchNumber,
		dryRun:      dryRun,
		log:         log,
	}
}

// Post submits the entries as one batch dated postingDate.
func (c *Client) Post(ctx context.Context, entries []ledger.Entry, postingDate time.Time) error {
	payload := ledger.BatchPayload{
		Company:      c.companyCode,
		Batch:        c.batchNumber,
		Action:       batchAction,
		PostingDate:  calendar.FormatAPIDate(postingDate),
		KeepUnposted: "S",
		Operation:    "I",
		Items:        ledger.BatchItems(entries),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Post: marshaling batch: %w", err)
	}

	if c.dryRun {
		c.log.Info().
			Int("items", len(payload.Items)).
			Int("company", c.companyCode).
			Int("batch", c.batchNumber).
			RawJSON("payload", body).
			Msg("[DRY_RUN] Suppressing ledger batch post")
		return nil
	}

	if c.token == "" {
		return errors.New("Post: API_LANCAMENTO_TOKEN not configured")
	}

	c.log.Info().
		Int("items", len(payload.Items)).
		Str("posting_date", payload.PostingDate).
		Msg("Posting ledger batch")

	headers := map[string]string{
		"Authorization": "Bearer " + c.token,
		"Content-Type":  "application/json",
	}
	respBody, status, err := c.http.Do(ctx, http.MethodPost, c.url, headers, body)
	if err != nil {
		return fmt.Errorf("Post: calling accounting API: %w", err)
	}

	c.log.Info().Int("status", status).Str("response", string(respBody)).Msg("Ledger batch accepted")
	return nil
}
