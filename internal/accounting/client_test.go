package accounting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/ledger"
)

var postingDate = time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)

func sampleEntries() []ledger.Entry {
	return []ledger.Entry{
		{
			BranchCode:         1,
			ReducedAccountCode: 1829,
			Side:               ledger.Credit,
			Amount:             decimal.RequireFromString("1000.00"),
			CostCenterReduced:  201,
			Narrative:          ledger.Narrative,
			ProjectReduced:     192,
		},
		{
			BranchCode:         1,
			ReducedAccountCode: 1829,
			Side:               ledger.Debit,
			Amount:             decimal.RequireFromString("1000.00"),
			CostCenterReduced:  101,
			Narrative:          ledger.Narrative,
			ProjectReduced:     192,
		},
	}
}

func newTestClient(url string, dryRun bool) *Client {
	hc := httpx.NewWithBackoffInterval(5*time.Second, nil, time.Millisecond, zerolog.Nop())
	return New(hc, url, "secret", 15534, 10401, dryRun, zerolog.Nop())
}

func TestPost_SendsBatch(t *testing.T) {
	var got ledger.BatchPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL, false).Post(context.Background(), sampleEntries(), postingDate); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	if got.Company != 15534 || got.Batch != 10401 || got.Action != 20 {
		t.Errorf("batch envelope = company %d batch %d action %d", got.Company, got.Batch, got.Action)
	}
	if got.PostingDate != "31/08/2025" {
		t.Errorf("posting date = %q, want 31/08/2025", got.PostingDate)
	}
	if got.KeepUnposted != "S" || got.Operation != "I" {
		t.Errorf("flags = %q/%q, want S/I", got.KeepUnposted, got.Operation)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if got.Items[0].CreditAccount != 1829 || got.Items[1].DebitAccount != 1829 {
		t.Errorf("item accounts = %+v", got.Items)
	}
}

func TestPost_DryRunSuppressesCall(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL, true).Post(context.Background(), sampleEntries(), postingDate); err != nil {
		t.Fatalf("dry-run Post failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("server calls = %d, want 0 in dry-run mode", calls)
	}
}

func TestPost_MissingToken(t *testing.T) {
	hc := httpx.New(time.Second, nil, zerolog.Nop())
	c := New(hc, "http://unused.invalid", "", 15534, 10401, false, zerolog.Nop())

	if err := c.Post(context.Background(), sampleEntries(), postingDate); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestPost_RejectionIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("lote invalido"))
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL, false).Post(context.Background(), sampleEntries(), postingDate); err == nil {
		t.Fatal("expected error on a rejected batch")
	}
}
