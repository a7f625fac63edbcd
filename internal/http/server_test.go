package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fundbook/internal/auth"
	"fundbook/internal/core"
	"fundbook/internal/observability"
	"fundbook/internal/services"
	"fundbook/internal/storage"
)

type testEnvelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	GrandTotal *core.Money     `json:"grandTotal"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "fundbook.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sessions := auth.NewJWTManager("test-secret-key-at-least-32-bytes", time.Hour)
	verifier := auth.NewVerifier("admin", "", "secret123")

	s := NewServer(
		":0",
		services.NewContributionService(repo, nil),
		services.NewWithdrawalService(repo, nil),
		services.NewSummaryService(repo),
		sessions,
		verifier,
		observability.NewMetrics(),
	)
	t.Cleanup(func() { s.rateLimiter.stop() })

	token, err := sessions.Generate("admin")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return s, token
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	var env testEnvelope
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("unmarshal envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestLogin(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/login", "", `{"username":"admin","password":"secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected non-empty token")
	}

	rec, env = doRequest(t, s, http.MethodPost, "/api/login", "", `{"username":"admin","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}
	if env.Success {
		t.Error("wrong password: success should be false")
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/api/collections", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec, _ = doRequest(t, s, http.MethodGet, "/api/collections", "garbage-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestContributionEndpoints(t *testing.T) {
	s, token := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/collections", token,
		`{"name":"Ramesh Kumar","promisedAmount":1000,"initialPayment":200}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var c contributionDTO
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("unmarshal contribution: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected _id")
	}
	if c.TotalPaid.Paise != 20000 || c.RemainingAmount.Paise != 80000 {
		t.Errorf("paid/remaining = %d/%d, want 20000/80000", c.TotalPaid.Paise, c.RemainingAmount.Paise)
	}
	if len(c.Installments) != 1 {
		t.Fatalf("installments = %d, want 1", len(c.Installments))
	}

	// amounts accepted as JSON strings too
	rec, env = doRequest(t, s, http.MethodPost, "/api/collections/"+c.ID+"/installment", token,
		`{"amount":"300.50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("installment: status = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("unmarshal contribution: %v", err)
	}
	if c.TotalPaid.Paise != 50050 {
		t.Errorf("total paid = %d, want 50050", c.TotalPaid.Paise)
	}

	// overshoot is rejected with 422 and leaves state unchanged
	rec, env = doRequest(t, s, http.MethodPost, "/api/collections/"+c.ID+"/installment", token,
		`{"amount":900}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overshoot: status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	if env.Success || env.Message == "" {
		t.Error("overshoot: expected failure envelope with message")
	}

	rec, env = doRequest(t, s, http.MethodGet, "/api/collections/"+c.ID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("unmarshal contribution: %v", err)
	}
	if len(c.Installments) != 2 {
		t.Errorf("installments after rejection = %d, want 2", len(c.Installments))
	}

	rec, env = doRequest(t, s, http.MethodGet, "/api/collections", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var list []contributionDTO
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	rec, _ = doRequest(t, s, http.MethodGet, "/api/collections/no-such-id", token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing contribution: status = %d, want 404", rec.Code)
	}
}

func TestContributionValidationStatuses(t *testing.T) {
	s, token := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"blank name", `{"name":"  ","promisedAmount":100}`, http.StatusUnprocessableEntity},
		{"zero promise", `{"name":"X","promisedAmount":0}`, http.StatusUnprocessableEntity},
		{"initial over promise", `{"name":"X","promisedAmount":100,"initialPayment":200}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"name":"X","promisedAmount":-5}`, http.StatusBadRequest},
		{"not json", `promisedAmount=100`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, s, http.MethodPost, "/api/collections", token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestWithdrawalEndpoints(t *testing.T) {
	s, token := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/withdrawals", token,
		`{"name":"Festival 2026","amount":500,"purpose":"Festival expenses"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body.String())
	}
	var a withdrawalAccountDTO
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("unmarshal account: %v", err)
	}
	if len(a.Withdrawals) != 1 || a.Withdrawals[0].Purpose != "Festival expenses" {
		t.Fatalf("entries = %+v", a.Withdrawals)
	}

	// purpose optional on entries
	rec, env = doRequest(t, s, http.MethodPost, "/api/withdrawals/"+a.ID+"/add", token,
		`{"amount":300}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add entry: status = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("unmarshal account: %v", err)
	}
	if a.TotalWithdrawn.Paise != 80000 {
		t.Errorf("total withdrawn = %d, want 80000", a.TotalWithdrawn.Paise)
	}

	entryID := a.Withdrawals[0].ID

	// purpose required on usages
	rec, _ = doRequest(t, s, http.MethodPost, "/api/withdrawals/"+a.ID+"/usage", token,
		`{"entryId":"`+entryID+`","amount":100,"purpose":"  "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank purpose: status = %d, want 422", rec.Code)
	}

	rec, env = doRequest(t, s, http.MethodPost, "/api/withdrawals/"+a.ID+"/usage", token,
		`{"entryId":"`+entryID+`","amount":300,"purpose":"Flowers"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("usage: status = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("unmarshal account: %v", err)
	}
	if a.TotalUsed.Paise != 30000 {
		t.Errorf("total used = %d, want 30000", a.TotalUsed.Paise)
	}
	if a.Withdrawals[0].RemainingAmount.Paise != 20000 {
		t.Errorf("entry remaining = %d, want 20000", a.Withdrawals[0].RemainingAmount.Paise)
	}

	// over-allocation against that entry
	rec, _ = doRequest(t, s, http.MethodPost, "/api/withdrawals/"+a.ID+"/usage", token,
		`{"entryId":"`+entryID+`","amount":250,"purpose":"Lights"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("over-allocation: status = %d, want 422", rec.Code)
	}

	// unknown entry
	rec, _ = doRequest(t, s, http.MethodPost, "/api/withdrawals/"+a.ID+"/usage", token,
		`{"entryId":"no-such-entry","amount":10,"purpose":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown entry: status = %d, want 404", rec.Code)
	}

	rec, env = doRequest(t, s, http.MethodGet, "/api/withdrawals", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if env.GrandTotal == nil || env.GrandTotal.Paise != 80000 {
		t.Errorf("grandTotal = %v, want 800.00", env.GrandTotal)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s, token := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/collections", token,
		`{"name":"Ramesh Kumar","promisedAmount":1000,"initialPayment":400}`)
	doRequest(t, s, http.MethodPost, "/api/withdrawals", token,
		`{"name":"Festival 2026","amount":600}`)

	rec, env := doRequest(t, s, http.MethodGet, "/api/summary", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status = %d: %s", rec.Code, rec.Body.String())
	}
	var sum summaryDTO
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if sum.Persons != 1 {
		t.Errorf("persons = %d, want 1", sum.Persons)
	}
	if sum.Balance.Paise != -20000 {
		t.Errorf("balance = %d, want -20000", sum.Balance.Paise)
	}

	// a mutation invalidates the cached summary
	doRequest(t, s, http.MethodPost, "/api/collections", token,
		`{"name":"Sita Devi","promisedAmount":500,"initialPayment":500}`)

	_, env = doRequest(t, s, http.MethodGet, "/api/summary", token, "")
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if sum.Persons != 2 {
		t.Errorf("persons after mutation = %d, want 2", sum.Persons)
	}
	if sum.Balance.Paise != 30000 {
		t.Errorf("balance after mutation = %d, want 30000", sum.Balance.Paise)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
