package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/birizinit/meuacessor/src/reporting"
)

// authedRequest builds a request carrying an authenticated user ID, the
// way AuthMiddleware would leave it.
func authedRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), userIDContextKey, userID)
	return req.WithContext(ctx)
}

func TestSummaryRequiresValidPeriod(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?period=year", 1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid period: got status %d", rec.Code)
	}
}

func TestSummaryWeekShape(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?period=week", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}

	var summary reporting.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if len(summary.Buckets) != 7 {
		t.Errorf("week summary buckets: got %d, want 7", len(summary.Buckets))
	}
}

func TestSummaryByMonth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?month=Abril&year=2025", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var summary reporting.Summary
	json.NewDecoder(rec.Body).Decode(&summary)
	if len(summary.Buckets) != 30 {
		t.Errorf("April buckets: got %d, want 30", len(summary.Buckets))
	}

	rec = httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?month=Mercurio&year=2025", 1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown month: got status %d", rec.Code)
	}

	// month without year is rejected before touching the service.
	rec = httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?month=Abril", 1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("month without year: got status %d", rec.Code)
	}
}

func TestMissingBrokerTokenMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	env.reports.err = "token"

	rec := httptest.NewRecorder()
	env.handler.HandleGetSummary(rec, authedRequest(http.MethodGet, "/api/reports/summary?period=today", 1))
	if rec.Code != http.StatusConflict {
		t.Fatalf("got status %d, want 409", rec.Code)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != brokerTokenMissingMessage {
		t.Errorf("got error %q", resp["error"])
	}
}

func TestBrokerFailureMapsToBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.reports.err = "broker"

	rec := httptest.NewRecorder()
	env.handler.HandleGetWallets(rec, authedRequest(http.MethodGet, "/api/wallets", 1))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", rec.Code)
	}
}

func TestTopSymbolsEmptyIsNotNull(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleGetTopSymbols(rec, authedRequest(http.MethodGet, "/api/reports/top-operations?period=month", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var resp struct {
		Symbols []reporting.RankedSymbolStat `json:"symbols"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Symbols == nil {
		t.Error("symbols should decode to an empty slice, not null")
	}
}

func TestExportCSVHeaders(t *testing.T) {
	env := newTestEnv(t)
	env.reports.csv = reporting.UTF8BOM + "\"Moedas\";\"Data\";\"Hora\";\"Aporte\";\"Resultado\"\n"

	rec := httptest.NewRecorder()
	env.handler.HandleExportOperationsCSV(rec, authedRequest(http.MethodGet, "/api/operations/export?period=month", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=operacoes.csv" {
		t.Errorf("Content-Disposition: got %q", cd)
	}
	if rec.Body.String() != env.reports.csv {
		t.Error("body does not match service output")
	}
}

func TestListOperationsValidatesFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleListOperations(rec, authedRequest(http.MethodGet, "/api/operations?period=today&result=winners", 1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter: got status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.HandleListOperations(rec, authedRequest(http.MethodGet, "/api/operations?period=today&result=positive&page=2&pageSize=5", 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
}
