package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telehealth-gate/internal/gate"
	"github.com/wolfman30/telehealth-gate/internal/policy"
	"github.com/wolfman30/telehealth-gate/internal/records"
	"github.com/wolfman30/telehealth-gate/internal/verdict"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

const maxBatchSize = 100

// GateService is the decision engine surface the handlers call.
type GateService interface {
	ClassifyControlled(medication string) gate.ControlledResult
	EvaluateRefill(ctx context.Context, req gate.RefillRequest) (verdict.Verdict, error)
	EvaluateRefills(ctx context.Context, reqs []gate.RefillRequest) ([]gate.BatchItem, error)
	EvaluateCheckIn(ctx context.Context, req gate.AppointmentRequest) (verdict.Verdict, error)
	EvaluateCancellation(ctx context.Context, req gate.AppointmentRequest) (verdict.Verdict, error)
	SearchKnowledge(ctx context.Context, req gate.SearchRequest) (verdict.Verdict, error)
	Records() records.Repository
}

// GateHandler serves the decision engine over JSON.
type GateHandler struct {
	service GateService
	logger  *logging.Logger
	now     func() time.Time
}

// NewGateHandler creates a handler. A nil clock stamps requests with
// time.Now when they omit "now".
func NewGateHandler(service GateService, now func() time.Time, logger *logging.Logger) *GateHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &GateHandler{service: service, logger: logger, now: now}
}

// ClassifyControlled handles GET /v1/medications/{name}/controlled.
func (h *GateHandler) ClassifyControlled(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "medication name required", "name")
		return
	}
	writeJSON(w, http.StatusOK, h.service.ClassifyControlled(name))
}

// EvaluateRefill handles POST /v1/refills/evaluate.
func (h *GateHandler) EvaluateRefill(w http.ResponseWriter, r *http.Request) {
	var payload refillRequestPayload
	if !h.decode(w, r, &payload) {
		return
	}
	req, err := h.refillRequest(r, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	v, err := h.service.EvaluateRefill(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RefillBatchResponse wraps batch results in request order.
type RefillBatchResponse struct {
	Results []gate.BatchItem `json:"results"`
	Count   int              `json:"count"`
}

// EvaluateRefills handles POST /v1/refills/evaluate-batch.
func (h *GateHandler) EvaluateRefills(w http.ResponseWriter, r *http.Request) {
	var payload refillBatchPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if len(payload.Requests) == 0 || len(payload.Requests) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "requests must contain between 1 and 100 items", "requests")
		return
	}

	reqs := make([]gate.RefillRequest, 0, len(payload.Requests))
	for _, p := range payload.Requests {
		req, err := h.refillRequest(r, p)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		reqs = append(reqs, req)
	}

	items, err := h.service.EvaluateRefills(r.Context(), reqs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefillBatchResponse{Results: items, Count: len(items)})
}

// EvaluateCheckIn handles POST /v1/appointments/check-in/evaluate.
func (h *GateHandler) EvaluateCheckIn(w http.ResponseWriter, r *http.Request) {
	h.evaluateAppointment(w, r, h.service.EvaluateCheckIn)
}

// EvaluateCancellation handles POST /v1/appointments/cancellation/evaluate.
func (h *GateHandler) EvaluateCancellation(w http.ResponseWriter, r *http.Request) {
	h.evaluateAppointment(w, r, h.service.EvaluateCancellation)
}

func (h *GateHandler) evaluateAppointment(w http.ResponseWriter, r *http.Request, evaluate func(context.Context, gate.AppointmentRequest) (verdict.Verdict, error)) {
	var payload appointmentRequestPayload
	if !h.decode(w, r, &payload) {
		return
	}
	now, err := h.stamp(payload.Now)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	req := gate.AppointmentRequest{
		RequestID:     middleware.GetReqID(r.Context()),
		AppointmentID: payload.AppointmentID,
		Now:           now,
	}
	if payload.Appointment != nil {
		appt, err := payload.Appointment.toAppointment()
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		req.Appointment = &appt
	}

	v, err := evaluate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SearchKnowledge handles POST /v1/knowledge/search.
func (h *GateHandler) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	var payload searchRequestPayload
	if !h.decode(w, r, &payload) {
		return
	}
	v, err := h.service.SearchKnowledge(r.Context(), gate.SearchRequest{
		RequestID: middleware.GetReqID(r.Context()),
		Query:     payload.Query,
		Category:  payload.Category,
		TopK:      payload.TopK,
		Now:       h.now(),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListPrescriptions handles GET /v1/prescriptions.
func (h *GateHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Records().ListPrescriptions(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": list, "count": len(list)})
}

// ListAppointments handles GET /v1/appointments.
func (h *GateHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Records().ListAppointments(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list, "count": len(list)})
}

// HealthCheck handles GET /health.
func (h *GateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GateHandler) refillRequest(r *http.Request, p refillRequestPayload) (gate.RefillRequest, error) {
	now, err := h.stamp(p.Now)
	if err != nil {
		return gate.RefillRequest{}, err
	}
	req := gate.RefillRequest{
		RequestID:      middleware.GetReqID(r.Context()),
		PrescriptionID: p.PrescriptionID,
		Now:            now,
	}
	if p.Prescription != nil {
		rx, err := p.Prescription.toPrescription()
		if err != nil {
			return gate.RefillRequest{}, err
		}
		req.Prescription = &rx
	}
	return req, nil
}

// stamp parses a request-supplied instant, falling back to the handler clock.
func (h *GateHandler) stamp(raw string) (time.Time, error) {
	t, err := parseTime("now", raw)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return h.now(), nil
	}
	return t, nil
}

func (h *GateHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.Warn("failed to decode request", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return false
	}
	return true
}

func (h *GateHandler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *policy.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, err.Error(), vErr.Field)
	case errors.Is(err, records.ErrPrescriptionNotFound), errors.Is(err, records.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", "")
	default:
		h.logger.Error("gate request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, errorResponse{Error: message, Field: field})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
