package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/telehealth-gate/internal/app/bootstrap"
	appconfig "github.com/wolfman30/telehealth-gate/internal/config"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

func TestSetupMetricsExposesGoCollectors(t *testing.T) {
	handler, reg := setupMetrics()
	if handler == nil || reg == nil {
		t.Fatalf("expected non-nil handler and registry")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected go collector output")
	}
}

func TestBuildRouterServesDecisions(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{
		Env:              "development",
		RecordsBackend:   appconfig.RecordsBackendMemory,
		RetrievalTopK:    3,
		AmbiguityMargin:  5,
		BatchConcurrency: 2,
		RateLimitRPS:     100,
		RateLimitBurst:   100,
	}
	metricsHandler, reg := setupMetrics()
	rt, err := bootstrap.BuildGate(context.Background(), cfg, reg, logger)
	if err != nil {
		t.Fatalf("build gate: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := buildRouter(ctx, cfg, rt, metricsHandler, logger)

	body := `{"appointment_id":"APT-2024-1003","now":"` + time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC).Format(time.RFC3339) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/appointments/cancellation/evaluate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"resolved":true`) {
		t.Fatalf("expected resolved cancellation, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "telehealth_gate_decisions_total") {
		t.Fatalf("expected decision metrics to be exported")
	}
}
