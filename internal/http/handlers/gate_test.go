package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/gate"
	"github.com/wolfman30/telehealth-gate/internal/observability/metrics"
	"github.com/wolfman30/telehealth-gate/internal/records"
	"github.com/wolfman30/telehealth-gate/internal/refill"
	"github.com/wolfman30/telehealth-gate/internal/verdict"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

var fixedNow = time.Date(2024, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := gate.New(gate.Options{
		Metrics: metrics.NewDecisionMetrics(prometheus.NewRegistry()),
		Logger:  logging.Default(),
	})
	h := NewGateHandler(svc, func() time.Time { return fixedNow }, logging.Default())
	return mountGate(h)
}

func mountGate(h *GateHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/v1/medications/{name}/controlled", h.ClassifyControlled)
	r.Post("/v1/refills/evaluate", h.EvaluateRefill)
	r.Post("/v1/refills/evaluate-batch", h.EvaluateRefills)
	r.Post("/v1/appointments/check-in/evaluate", h.EvaluateCheckIn)
	r.Post("/v1/appointments/cancellation/evaluate", h.EvaluateCancellation)
	r.Post("/v1/knowledge/search", h.SearchKnowledge)
	r.Get("/v1/prescriptions", h.ListPrescriptions)
	r.Get("/v1/appointments", h.ListAppointments)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeVerdict(t *testing.T, rec *httptest.ResponseRecorder) verdict.Verdict {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v verdict.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestClassifyControlledHandler(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/medications/Xanax/controlled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got gate.ControlledResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Controlled)
	assert.Equal(t, "IV", got.Schedule)

	rec = doJSON(t, router, http.MethodGet, "/v1/medications/Lisinopril/controlled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var plain gate.ControlledResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	assert.False(t, plain.Controlled)
	assert.Empty(t, plain.Schedule)

	rec = doJSON(t, router, http.MethodGet, "/v1/medications/Oxycodone5mg/controlled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var attached gate.ControlledResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attached))
	assert.True(t, attached.Controlled)
	assert.Equal(t, "II", attached.Schedule)
}

func TestEvaluateRefillByID(t *testing.T) {
	router := newTestRouter(t)

	v := decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/refills/evaluate",
		`{"prescription_id":"RX-001","now":"2024-10-09"}`))
	assert.Equal(t, verdict.KindRefill, v.Kind)
	assert.True(t, v.Resolved)
	assert.Nil(t, v.ReasonCode)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/refills/evaluate",
		`{"prescription_id":"RX-001","now":"2024-10-01T09:00:00Z"}`))
	assert.False(t, v.Resolved)
	require.NotNil(t, v.ReasonCode)
	assert.Equal(t, "too_soon", *v.ReasonCode)
	require.NotNil(t, v.Detail.Eligibility)
	require.NotNil(t, v.Detail.Eligibility.EarliestEligible)
	assert.Equal(t, "2024-10-09", v.Detail.Eligibility.EarliestEligible.Format("2006-01-02"))

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/refills/evaluate",
		`{"prescription_id":"RX-002","now":"2024-10-15"}`))
	assert.True(t, v.Escalate)
	assert.Equal(t, verdict.UrgencyHigh, v.Urgency)
	assert.Equal(t, "no_refills_remaining", *v.ReasonCode)
}

func TestEvaluateRefillStampsNowWhenAbsent(t *testing.T) {
	// fixedNow is 2024-10-17, past RX-001's earliest refill date.
	v := decodeVerdict(t, doJSON(t, newTestRouter(t), http.MethodPost, "/v1/refills/evaluate",
		`{"prescription_id":"RX-001"}`))
	assert.True(t, v.Resolved)
	require.NotNil(t, v.Detail.Eligibility)
	assert.True(t, v.Detail.Eligibility.EvaluatedAt.Equal(fixedNow))
}

func TestEvaluateRefillInlineControlled(t *testing.T) {
	body := `{
		"prescription": {
			"id": "RX-900",
			"medication": "Adderall",
			"dosage": "20mg",
			"refills_remaining": 2,
			"days_supply": 30,
			"last_filled": "2024-08-01",
			"expiration_date": "2025-08-01",
			"prescriber": "Dr. Lee",
			"pharmacy": "Main St"
		},
		"now": "2024-10-15"
	}`
	v := decodeVerdict(t, doJSON(t, newTestRouter(t), http.MethodPost, "/v1/refills/evaluate", body))
	assert.True(t, v.Escalate)
	assert.Equal(t, "controlled_substance", *v.ReasonCode)
	assert.Equal(t, verdict.UrgencyHigh, v.Urgency)
}

func TestEvaluateRefillErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"rx":"RX-001"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown prescription", body: `{"prescription_id":"RX-404","now":"2024-10-15"}`, wantStatus: http.StatusNotFound},
		{name: "unparseable now", body: `{"prescription_id":"RX-001","now":"next tuesday"}`, wantStatus: http.StatusBadRequest, wantField: "now"},
		{
			name:       "unparseable last filled",
			body:       `{"prescription":{"id":"RX-9","medication":"Lisinopril","refills_remaining":1,"days_supply":30,"last_filled":"15/09/2024"},"now":"2024-10-15"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "last_filled",
		},
		{
			name:       "negative refills",
			body:       `{"prescription":{"id":"RX-9","medication":"Lisinopril","refills_remaining":-1,"days_supply":30,"last_filled":"2024-09-15"},"now":"2024-10-15"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "refills_remaining",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/v1/refills/evaluate", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.NotEmpty(t, resp.Error)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, resp.Field)
			}
		})
	}
}

func TestEvaluateRefillBatch(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/refills/evaluate-batch", `{"requests":[
		{"prescription_id":"RX-001","now":"2024-10-15"},
		{"prescription_id":"RX-404","now":"2024-10-15"},
		{"prescription_id":"RX-002","now":"2024-10-15"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RefillBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "RX-001", resp.Results[0].PrescriptionID)
	require.NotNil(t, resp.Results[0].Verdict)
	assert.True(t, resp.Results[0].Verdict.Resolved)
	assert.Nil(t, resp.Results[1].Verdict)
	assert.NotEmpty(t, resp.Results[1].Error)
	require.NotNil(t, resp.Results[2].Verdict)
	assert.True(t, resp.Results[2].Verdict.Escalate)
}

func TestEvaluateRefillBatchSizeLimits(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/refills/evaluate-batch", `{"requests":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items := make([]string, maxBatchSize+1)
	for i := range items {
		items[i] = `{"prescription_id":"RX-001"}`
	}
	rec = doJSON(t, router, http.MethodPost, "/v1/refills/evaluate-batch", `{"requests":[`+strings.Join(items, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "requests", decodeError(t, rec).Field)
}

func TestEvaluateCheckInHandler(t *testing.T) {
	router := newTestRouter(t)

	// APT-2024-1001 is scheduled for 2024-10-18 10:00 UTC.
	v := decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/appointments/check-in/evaluate",
		`{"appointment_id":"APT-2024-1001","now":"2024-10-17T12:00:00Z"}`))
	assert.Equal(t, verdict.KindCheckIn, v.Kind)
	assert.True(t, v.Resolved)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/appointments/check-in/evaluate",
		`{"appointment_id":"APT-2024-1001","now":"2024-10-16T12:00:00Z"}`))
	assert.False(t, v.Resolved)
	assert.Equal(t, "too_early", *v.ReasonCode)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/appointments/check-in/evaluate",
		`{"appointment_id":"APT-2024-1001","now":"2024-10-18T10:00:01Z"}`))
	assert.Equal(t, "window_passed", *v.ReasonCode)

	rec := doJSON(t, router, http.MethodPost, "/v1/appointments/check-in/evaluate",
		`{"appointment_id":"APT-9999","now":"2024-10-17T12:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateCheckInInlineAppointment(t *testing.T) {
	v := decodeVerdict(t, doJSON(t, newTestRouter(t), http.MethodPost, "/v1/appointments/check-in/evaluate", `{
		"appointment": {
			"id": "APT-X",
			"type": "Follow-up",
			"provider": "Dr. Patel",
			"location": "Telehealth",
			"scheduled_at": "2024-10-18T10:00:00Z",
			"status": "checked-in"
		},
		"now": "2024-10-18T09:00:00Z"
	}`))
	assert.False(t, v.Resolved)
	assert.Equal(t, "already_checked_in", *v.ReasonCode)

	rec := doJSON(t, newTestRouter(t), http.MethodPost, "/v1/appointments/check-in/evaluate",
		`{"appointment":{"id":"APT-X","scheduled_at":"2024-10-18T10:00:00Z","status":"lost"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateCancellationHandler(t *testing.T) {
	router := newTestRouter(t)

	// APT-2024-1002 is scheduled for 2024-10-25 14:30 UTC.
	v := decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/appointments/cancellation/evaluate",
		`{"appointment_id":"APT-2024-1002","now":"2024-10-24T14:30:00Z"}`))
	assert.Equal(t, verdict.KindCancellation, v.Kind)
	assert.True(t, v.Resolved)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/appointments/cancellation/evaluate",
		`{"appointment_id":"APT-2024-1002","now":"2024-10-24T14:30:01Z"}`))
	assert.False(t, v.Resolved)
	assert.Equal(t, "late_cancellation_fee_risk", *v.ReasonCode)
}

func TestSearchKnowledgeHandler(t *testing.T) {
	router := newTestRouter(t)

	v := decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/knowledge/search",
		`{"query":"PPO vs HMO","category":"insurance"}`))
	assert.Equal(t, verdict.KindKnowledge, v.Kind)
	assert.True(t, v.Resolved)
	require.NotNil(t, v.Detail.Retrieval)
	require.NotEmpty(t, v.Detail.Retrieval.Matches)
	assert.Equal(t, "ins_001", v.Detail.Retrieval.Matches[0].Document.ID)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/knowledge/search",
		`{"query":"coverage","category":"insurance"}`))
	assert.True(t, v.Ambiguous)
	assert.Equal(t, "ambiguous_query", *v.ReasonCode)

	rec := doJSON(t, router, http.MethodPost, "/v1/knowledge/search", `{"query":"copay","category":"dental"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "category", decodeError(t, rec).Field)

	v = decodeVerdict(t, doJSON(t, router, http.MethodPost, "/v1/knowledge/search", `{"query":"   "}`))
	assert.True(t, v.Escalate)
	assert.Equal(t, "no_knowledge_match", *v.ReasonCode)
	assert.True(t, v.Detail.Retrieval.NoResults)
}

func TestListRecordsHandlers(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/prescriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rxResp struct {
		Prescriptions []refill.Prescription `json:"prescriptions"`
		Count         int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rxResp))
	assert.Equal(t, 3, rxResp.Count)
	assert.Equal(t, "RX-001", rxResp.Prescriptions[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/v1/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var apptResp struct {
		Appointments []appointments.Appointment `json:"appointments"`
		Count        int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apptResp))
	assert.Equal(t, 3, apptResp.Count)
}

type failingRecords struct{ records.Repository }

func (failingRecords) ListPrescriptions(context.Context) ([]refill.Prescription, error) {
	return nil, errors.New("connection refused")
}

func TestListPrescriptionsStoreFailure(t *testing.T) {
	svc := gate.New(gate.Options{
		Records: failingRecords{},
		Metrics: metrics.NewDecisionMetrics(prometheus.NewRegistry()),
	})
	router := mountGate(NewGateHandler(svc, nil, nil))

	rec := doJSON(t, router, http.MethodGet, "/v1/prescriptions", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeError(t, rec).Error)
}

func TestParseTimeLayouts(t *testing.T) {
	for _, raw := range []string{"2024-10-15", "2024-10-15T09:30:00Z", "2024-10-15T09:30:00", "2024-10-15 09:30", "2024-10-15T09:30:00.123-04:00"} {
		got, err := parseTime("now", raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 2024, got.Year())
	}
	got, err := parseTime("now", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
