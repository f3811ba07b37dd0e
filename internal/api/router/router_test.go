package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/telehealth-gate/internal/gate"
	"github.com/wolfman30/telehealth-gate/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telehealth-gate/internal/http/middleware"
	"github.com/wolfman30/telehealth-gate/internal/observability/metrics"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	logger := logging.Default()
	reg := prometheus.NewRegistry()
	svc := gate.New(gate.Options{
		Metrics: metrics.NewDecisionMetrics(reg),
		Logger:  logger,
	})
	now := func() time.Time { return time.Date(2024, 10, 17, 12, 0, 0, 0, time.UTC) }

	return &Config{
		Logger:         logger,
		GateHandler:    handlers.NewGateHandler(svc, now, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterRegistersGateRoutes(t *testing.T) {
	router := New(newTestConfig(t))

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/v1/medications/oxycodone/controlled", ""},
		{http.MethodGet, "/v1/prescriptions", ""},
		{http.MethodGet, "/v1/appointments", ""},
		{http.MethodPost, "/v1/refills/evaluate", `{"prescription_id":"RX-001"}`},
		{http.MethodPost, "/v1/refills/evaluate-batch", `{"requests":[{"prescription_id":"RX-003"}]}`},
		{http.MethodPost, "/v1/appointments/check-in/evaluate", `{"appointment_id":"APT-2024-1001"}`},
		{http.MethodPost, "/v1/appointments/cancellation/evaluate", `{"appointment_id":"APT-2024-1003"}`},
		{http.MethodPost, "/v1/knowledge/search", `{"query":"insulin fridge"}`},
	}

	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, strings.NewReader(route.body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("%s %s: expected status %d, got %d (%s)", route.method, route.path, http.StatusOK, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-Id") == "" {
			t.Errorf("%s %s: expected X-Request-Id header", route.method, route.path)
		}
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.MetricsToken = "scrape-me"
	router := New(cfg)

	// Produce at least one decision so the counters are exported.
	req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/search", strings.NewReader(`{"query":"copay"}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without token, got %d", http.StatusUnauthorized, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Scrape-Token", "scrape-me")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "telehealth_gate_decisions_total") {
		t.Fatalf("expected decision counter in metrics output")
	}
}

func TestRouterServiceJWT(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ServiceJWTSecret = "secret"
	router := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/prescriptions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "chat-frontend",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/prescriptions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	// Health stays public.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected public health endpoint, got %d", rr.Code)
	}
}

func TestRouterRateLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RateLimiter = httpmiddleware.NewRateLimiter(0.001, 1)
	router := New(cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/medications/xanax/controlled", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := New(newTestConfig(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/leads/web", strings.NewReader("{}")))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRouterCORSPreflightBypassesServiceAuth(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ServiceJWTSecret = "s3cret"
	cfg.CORS = httpmiddleware.CORSPolicy{AllowedOrigins: []string{"https://portal.example.com"}, MaxAge: time.Minute}
	router := New(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/v1/refills/evaluate", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "60" {
		t.Fatalf("expected max age 60, got %q", got)
	}
}
