package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/auth"
	"github.com/example/itamdash/internal/cache"
	"github.com/example/itamdash/internal/clock"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/service"
)

const secret = "test-secret"

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream is a stand-in for the ITAM REST backend.
type upstream struct {
	mu         sync.Mutex
	status     int
	authHeader string
}

func (u *upstream) setStatus(code int) {
	u.mu.Lock()
	u.status = code
	u.mu.Unlock()
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.authHeader = r.Header.Get("Authorization")
	status := u.status
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"message":"upstream says no"}`)
		return
	}
	switch {
	case r.URL.Path == "/tickets" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"t0","ticket_id":"TKT-1","title":"Old laptop","status":"Closed","priority":"Low","created_at":"2026-02-20T09:00:00Z","created_by":{"_id":"u1","username":"maria"}},
			{"_id":"t1","ticket_id":"TKT-2","title":"Server down","status":"Open","priority":"Critical","created_at":"2026-03-01T09:00:00Z","created_by":{"_id":"u1","username":"maria"}},
			{"_id":"t2","ticket_id":"TKT-3","title":"Printer jam, again","status":"Open","priority":"High","created_at":"2026-03-01T12:00:00Z","created_by":{"_id":"u2","username":"jon"}}
		],"pagination":{"current_page":1,"total_pages":1,"total_tickets":3,"per_page":1000}}`)
	case r.URL.Path == "/auth/users":
		_, _ = io.WriteString(w, `{"users":[{"_id":"u1","username":"maria","email":"maria@example.com","role":"user","assignedAssets":["AA:01"]}]}`)
	case r.URL.Path == "/alerts/warranty":
		_, _ = io.WriteString(w, `{"alerts":[{"id":"al1","severity":"critical","hostname":"DESKTOP-01","macAddress":"AA:01","daysUntilExpiry":5,"expiryDate":"2026-03-07T00:00:00Z"}],"summary":{"total":1,"critical":1}}`)
	case strings.HasPrefix(r.URL.Path, "/telemetry/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"no telemetry"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	srv      *Server
	upstream *upstream
	clock    *clock.Fake
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	up := &upstream{}
	ts := httptest.NewServer(up)
	t.Cleanup(ts.Close)

	clk := clock.NewFake(now)
	log := zerolog.New(io.Discard)
	svc := service.New(service.Options{
		Backend: itam.NewClient(ts.URL, 2*time.Second),
		Cache:   cache.New[any](cache.Options{Clock: clk}),
		Clock:   clk,
		Log:     log,
	})
	return testEnv{srv: NewServer(svc, secret, clk, log), upstream: up, clock: clk}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.Sign(secret, auth.Claims{UserID: userID, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (e testEnv) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/tickets", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if rec := env.do(t, http.MethodGet, "/api/users", token(t, "u1", "user"), ""); rec.Code != http.StatusForbidden {
		t.Errorf("user on admin route = %d", rec.Code)
	}
}

func TestListTickets(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, "a1", "admin")
	rec := env.do(t, http.MethodGet, "/api/tickets?view=dashboard&perPage=2", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if got := env.upstream.authHeader; got != "Bearer "+tok {
		t.Errorf("upstream auth = %q", got)
	}

	var body struct {
		Page struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			TotalPages int `json:"totalPages"`
		} `json:"page"`
		Stats struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Page.Items) != 2 || body.Page.Items[0].ID != "t1" || body.Page.Items[1].ID != "t2" {
		t.Errorf("items = %+v", body.Page.Items)
	}
	if body.Page.TotalPages != 2 || body.Stats.Total != 3 {
		t.Errorf("totalPages=%d total=%d", body.Page.TotalPages, body.Stats.Total)
	}
}

func TestStaleHeaderOnUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, "a1", "admin")
	if rec := env.do(t, http.MethodGet, "/api/tickets", tok, ""); rec.Code != http.StatusOK {
		t.Fatalf("warm = %d", rec.Code)
	}
	env.clock.Advance(cache.TicketsTTL + time.Minute)
	env.upstream.setStatus(http.StatusInternalServerError)

	rec := env.do(t, http.MethodGet, "/api/tickets", tok, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Data-Stale") != "true" {
		t.Errorf("status=%d stale=%q", rec.Code, rec.Header().Get("X-Data-Stale"))
	}

	rec = env.do(t, http.MethodGet, "/api/alerts/warranty", tok, "")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "upstream says no") {
		t.Errorf("cold failure = %d %s", rec.Code, rec.Body)
	}

	env.upstream.setStatus(http.StatusForbidden)
	rec = env.do(t, http.MethodGet, "/api/software", tok, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("upstream 403 surfaced as %d", rec.Code)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/tickets", token(t, "a1", "admin"), `{"title":"Fan","description":"short","category":"Other","priority":"High"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"title", "description", "asset_id"} {
		if body.Fields[f] == "" {
			t.Errorf("missing field error for %s: %v", f, body.Fields)
		}
	}
}

func TestExportTickets(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, "a1", "admin")

	rec := env.do(t, http.MethodGet, "/api/tickets/export?status=Open", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="tickets_Open_2026-03-02.csv"`) {
		t.Errorf("disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[1], "TKT-2") || !strings.Contains(lines[2], `"Printer jam, again"`) {
		t.Errorf("csv = %q", lines)
	}

	rec = env.do(t, http.MethodGet, "/api/tickets/export?status=Rejected", tok, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty export = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/tickets/export?format=stats", tok, "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "Metric,Count,Percentage,Details") {
		t.Errorf("stats export = %d %q", rec.Code, rec.Body.String())
	}
}

func TestWarrantyExport(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/alerts/warranty/export?severity=critical", token(t, "a1", "admin"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "warranty_alerts_critical_2026-03-02.csv") {
		t.Errorf("disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Urgent") {
		t.Errorf("risk action missing: %s", rec.Body)
	}
}

func TestTelemetryNotReported(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/telemetry/AA:01", token(t, "a1", "admin"), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
