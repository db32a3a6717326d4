package reclassapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/osacfin/reclass-cc14/internal/httpx"
	"github.com/osacfin/reclass-cc14/internal/reclass"
)

var (
	periodStart = time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)
)

func newClient(url string) *Client {
	hc := httpx.NewWithBackoffInterval(5*time.Second, nil, time.Millisecond, zerolog.Nop())
	return New(hc, url, "secret", 1829, 15534, zerolog.Nop())
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]string
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request body not JSON: %v", err)
		}
		want := map[string]string{
			"ContaReduzido": "1829",
			"Empresa":       "15534",
			"DataInicial":   "01/08/2025",
			"DataFinal":     "31/08/2025",
		}
		for k, v := range want {
			if req[k] != v {
				t.Errorf("request %s = %q, want %q", k, req[k], v)
			}
		}

		w.Write([]byte(`{
			"success": true,
			"data": [
				{"FIL_IN_CODIGO": 1, "CENTROCUSTO": "11102001-Diretoria Financeira", "CUS_IN_REDUZIDO": 101, "CONTA": "41102", "VALORCREDITO": 0},
				{"FIL_IN_CODIGO": 1, "CENTROCUSTO": "12200001-Diretoria Operacional", "CUS_IN_REDUZIDO": 201, "CONTA": "41102", "VALORCREDITO": 1234.56}
			]
		}`))
	}))
	defer srv.Close()

	records, err := newClient(srv.URL).Fetch(context.Background(), periodStart, periodEnd)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].CostCenter != reclass.FinanceCostCenter || records[0].CostCenterReduced != 101 {
		t.Errorf("record 0 = %+v", records[0])
	}
	if !records[1].CreditAmount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("record 1 amount = %s, want 1234.56", records[1].CreditAmount)
	}
}

func TestFetch_EmptyDataIsErrNoData(t *testing.T) {
	for _, body := range []string{
		`{"success": true, "data": []}`,
		`{"success": true}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := newClient(srv.URL).Fetch(context.Background(), periodStart, periodEnd)
		srv.Close()
		if !errors.Is(err, ErrNoData) {
			t.Errorf("body %s: err = %v, want ErrNoData", body, err)
		}
	}
}

func TestFetch_APIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "conta invalida"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Fetch(context.Background(), periodStart, periodEnd)
	if err == nil || errors.Is(err, ErrNoData) {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestFetch_MalformedRecord(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		field string
	}{
		{
			"non-numeric branch",
			`{"FIL_IN_CODIGO": "abc", "CENTROCUSTO": "x-y", "CUS_IN_REDUZIDO": 1, "VALORCREDITO": 1}`,
			"FIL_IN_CODIGO",
		},
		{
			"fractional reduced code",
			`{"FIL_IN_CODIGO": 1, "CENTROCUSTO": "x-y", "CUS_IN_REDUZIDO": 1.5, "VALORCREDITO": 1}`,
			"CUS_IN_REDUZIDO",
		},
		{
			"missing cost center",
			`{"FIL_IN_CODIGO": 1, "CUS_IN_REDUZIDO": 1, "VALORCREDITO": 1}`,
			"CENTROCUSTO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success": true, "data": [` + tt.row + `]}`))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Fetch(context.Background(), periodStart, periodEnd)
			var tErr *reclass.TransformError
			if !errors.As(err, &tErr) {
				t.Fatalf("expected TransformError, got %v", err)
			}
			if tErr.Field != tt.field {
				t.Errorf("field = %s, want %s", tErr.Field, tt.field)
			}
		})
	}
}

func TestFetch_MissingToken(t *testing.T) {
	hc := httpx.New(time.Second, nil, zerolog.Nop())
	c := New(hc, "http://unused.invalid", "", 1829, 15534, zerolog.Nop())

	if _, err := c.Fetch(context.Background(), periodStart, periodEnd); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Fetch(context.Background(), periodStart, periodEnd)
	var sErr *httpx.StatusError
	if !errors.As(err, &sErr) || sErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped StatusError 401, got %v", err)
	}
}
