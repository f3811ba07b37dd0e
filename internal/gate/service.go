// Package gate is the host-facing entry point to the decision engine. It
// resolves records, runs the pure evaluators, assembles verdicts and records
// the decision for audit, metrics and tracing. Audit, cache and metrics
// failures never change a verdict.
package gate

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/controlled"
	"github.com/wolfman30/telehealth-gate/internal/knowledge"
	"github.com/wolfman30/telehealth-gate/internal/observability/metrics"
	"github.com/wolfman30/telehealth-gate/internal/policy"
	"github.com/wolfman30/telehealth-gate/internal/records"
	"github.com/wolfman30/telehealth-gate/internal/refill"
	"github.com/wolfman30/telehealth-gate/internal/verdict"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

const defaultBatchConcurrency = 8

// Auditor records decisions.
type Auditor interface {
	LogDecision(ctx context.Context, requestID, subjectID string, v verdict.Verdict, evaluatedAt time.Time) error
}

// Options wires a Service. Zero values select defaults: the embedded
// corpus, the default controlled-substance registry, the seeded record store
// and no audit, cache or metrics.
type Options struct {
	Registry *controlled.Registry
	Corpus   *knowledge.Corpus
	Records  records.Repository
	Audit    Auditor
	Cache    SearchCache
	Metrics  *metrics.DecisionMetrics
	Logger   *logging.Logger
	Tracer   trace.Tracer
	// AmbiguityMargin overrides verdict.DefaultAmbiguityMargin when set. A
	// margin of 0 turns ambiguity detection off.
	AmbiguityMargin  *float64
	DefaultTopK      int
	BatchConcurrency int
}

// Service exposes the gate operations. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	registry    *controlled.Registry
	refill      *refill.Evaluator
	corpus      *knowledge.Corpus
	engine      *knowledge.Engine
	assembler   *verdict.Assembler
	records     records.Repository
	audit       Auditor
	cache       SearchCache
	metrics     *metrics.DecisionMetrics
	logger      *logging.Logger
	tracer      trace.Tracer
	topK        int
	concurrency int
}

// New builds a Service from opts.
func New(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = controlled.Default()
	}
	if opts.Corpus == nil {
		opts.Corpus = knowledge.DefaultCorpus()
	}
	if opts.Records == nil {
		opts.Records = records.NewSeededRepository()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("telehealth/gate")
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = knowledge.DefaultTopK
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaultBatchConcurrency
	}
	margin := verdict.DefaultAmbiguityMargin
	if opts.AmbiguityMargin != nil {
		margin = *opts.AmbiguityMargin
	}
	return &Service{
		registry:    opts.Registry,
		refill:      refill.NewEvaluator(opts.Registry),
		corpus:      opts.Corpus,
		engine:      knowledge.NewEngine(opts.Corpus),
		assembler:   verdict.NewAssembler(margin),
		records:     opts.Records,
		audit:       opts.Audit,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		logger:      opts.Logger.WithComponent("gate"),
		tracer:      opts.Tracer,
		topK:        opts.DefaultTopK,
		concurrency: opts.BatchConcurrency,
	}
}

// Records exposes the record store for listing.
func (s *Service) Records() records.Repository { return s.records }

// ControlledResult is the classifier answer for one medication name.
type ControlledResult struct {
	Medication string `json:"medication"`
	Controlled bool   `json:"controlled"`
	Schedule   string `json:"schedule,omitempty"`
}

// ClassifyControlled reports whether medication is a scheduled drug.
func (s *Service) ClassifyControlled(medication string) ControlledResult {
	out := ControlledResult{Medication: medication}
	if schedule, ok := s.registry.Schedule(medication); ok {
		out.Controlled = true
		out.Schedule = schedule.String()
	}
	return out
}

// RefillRequest asks for a refill verdict. Exactly one of PrescriptionID or
// Prescription identifies the record; an inline record wins.
type RefillRequest struct {
	RequestID      string               `json:"-"`
	PrescriptionID string               `json:"prescription_id,omitempty"`
	Prescription   *refill.Prescription `json:"prescription,omitempty"`
	Now            time.Time            `json:"now"`
}

// EvaluateRefill resolves the prescription and evaluates it at req.Now.
func (s *Service) EvaluateRefill(ctx context.Context, req RefillRequest) (verdict.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "gate.evaluate_refill")
	defer span.End()

	if req.Now.IsZero() {
		return s.rejected(span, verdict.KindRefill, policy.Invalid("now", "is required"))
	}
	rx, err := s.resolvePrescription(ctx, req)
	if err != nil {
		return s.rejected(span, verdict.KindRefill, err)
	}
	span.SetAttributes(attribute.String("gate.subject_id", rx.ID))

	pv, err := s.refill.Evaluate(rx, req.Now)
	if err != nil {
		return s.rejected(span, verdict.KindRefill, err)
	}
	v := s.assembler.FromEligibility(verdict.KindRefill, pv)
	s.record(ctx, span, req.RequestID, rx.ID, v, req.Now)
	return v, nil
}

func (s *Service) resolvePrescription(ctx context.Context, req RefillRequest) (refill.Prescription, error) {
	if req.Prescription != nil {
		return *req.Prescription, nil
	}
	if req.PrescriptionID == "" {
		return refill.Prescription{}, policy.Invalid("prescription", "prescription_id or prescription is required")
	}
	return s.records.GetPrescription(ctx, req.PrescriptionID)
}

// BatchItem is one entry of a batch refill evaluation, in request order.
type BatchItem struct {
	PrescriptionID string           `json:"prescription_id,omitempty"`
	Verdict        *verdict.Verdict `json:"verdict,omitempty"`
	Error          string           `json:"error,omitempty"`
	err            error
}

// Err returns the per-item failure, if any.
func (b BatchItem) Err() error { return b.err }

// EvaluateRefills evaluates each request on a bounded pool. A failing item
// does not fail the batch; only context cancellation does.
func (s *Service) EvaluateRefills(ctx context.Context, reqs []RefillRequest) ([]BatchItem, error) {
	ctx, span := s.tracer.Start(ctx, "gate.evaluate_refills")
	defer span.End()
	span.SetAttributes(attribute.Int("gate.batch_size", len(reqs)))

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := BatchItem{PrescriptionID: req.PrescriptionID}
			if req.Prescription != nil {
				item.PrescriptionID = req.Prescription.ID
			}
			v, err := s.EvaluateRefill(gctx, req)
			if err != nil {
				item.err = err
				item.Error = err.Error()
			} else {
				item.Verdict = &v
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return items, nil
}

// AppointmentRequest asks for a check-in or cancellation verdict.
type AppointmentRequest struct {
	RequestID     string                    `json:"-"`
	AppointmentID string                    `json:"appointment_id,omitempty"`
	Appointment   *appointments.Appointment `json:"appointment,omitempty"`
	Now           time.Time                 `json:"now"`
}

// EvaluateCheckIn decides whether the appointment may be checked in.
func (s *Service) EvaluateCheckIn(ctx context.Context, req AppointmentRequest) (verdict.Verdict, error) {
	return s.evaluateAppointment(ctx, "gate.evaluate_check_in", verdict.KindCheckIn, appointments.EvaluateCheckIn, req)
}

// EvaluateCancellation decides whether the appointment may be cancelled
// without fee risk.
func (s *Service) EvaluateCancellation(ctx context.Context, req AppointmentRequest) (verdict.Verdict, error) {
	return s.evaluateAppointment(ctx, "gate.evaluate_cancellation", verdict.KindCancellation, appointments.EvaluateCancellation, req)
}

func (s *Service) evaluateAppointment(
	ctx context.Context,
	spanName string,
	kind verdict.Kind,
	evaluate func(appointments.Appointment, time.Time) (policy.Verdict, error),
	req AppointmentRequest,
) (verdict.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	if req.Now.IsZero() {
		return s.rejected(span, kind, policy.Invalid("now", "is required"))
	}
	appt, err := s.resolveAppointment(ctx, req)
	if err != nil {
		return s.rejected(span, kind, err)
	}
	span.SetAttributes(attribute.String("gate.subject_id", appt.ID))

	pv, err := evaluate(appt, req.Now)
	if err != nil {
		return s.rejected(span, kind, err)
	}
	v := s.assembler.FromEligibility(kind, pv)
	s.record(ctx, span, req.RequestID, appt.ID, v, req.Now)
	return v, nil
}

func (s *Service) resolveAppointment(ctx context.Context, req AppointmentRequest) (appointments.Appointment, error) {
	if req.Appointment != nil {
		return *req.Appointment, nil
	}
	if req.AppointmentID == "" {
		return appointments.Appointment{}, policy.Invalid("appointment", "appointment_id or appointment is required")
	}
	return s.records.GetAppointment(ctx, req.AppointmentID)
}

// SearchRequest asks whether a free-text question can be answered from the
// knowledge base.
type SearchRequest struct {
	RequestID string `json:"-"`
	Query     string `json:"query"`
	Category  string `json:"category,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	// Now is only stamped on the audit record; retrieval does not depend on it.
	Now time.Time `json:"-"`
}

// SearchKnowledge scores the query against the corpus and classifies the
// result. Only an unknown category is an error; no match is a verdict.
func (s *Service) SearchKnowledge(ctx context.Context, req SearchRequest) (verdict.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "gate.search_knowledge")
	defer span.End()

	category, ok := knowledge.ParseCategory(req.Category)
	if !ok {
		return s.rejected(span, verdict.KindKnowledge, policy.Invalid("category", "unknown category "+req.Category))
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	span.SetAttributes(
		attribute.String("knowledge.category", string(category)),
		attribute.Int("knowledge.top_k", topK),
	)

	result := s.search(ctx, req.Query, category, topK)
	v := s.assembler.FromRetrieval(result)
	span.SetAttributes(
		attribute.String("knowledge.tier", string(result.Tier)),
		attribute.Float64("knowledge.top_score", result.TopScore()),
		attribute.Bool("knowledge.ambiguous", v.Ambiguous),
	)
	s.metrics.ObserveRetrieval(string(result.Tier), v.Ambiguous, result.TopScore())
	s.record(ctx, span, req.RequestID, "", v, req.Now)
	return v, nil
}

func (s *Service) search(ctx context.Context, query string, category knowledge.Category, topK int) knowledge.Result {
	opts := knowledge.SearchOptions{Category: category, TopK: topK}
	if s.cache == nil {
		return s.engine.Search(query, opts)
	}

	key := searchCacheKey(s.corpus.Fingerprint(), knowledge.Normalize(query), category, topK)
	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("search cache read failed", "error", err)
	}
	s.metrics.ObserveCache(hit)
	if hit {
		return cached
	}

	result := s.engine.Search(query, opts)
	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("search cache write failed", "error", err)
	}
	return result
}

func (s *Service) rejected(span trace.Span, kind verdict.Kind, err error) (verdict.Verdict, error) {
	span.RecordError(err)
	var vErr *policy.ValidationError
	if errors.As(err, &vErr) {
		s.metrics.ObserveValidationError(string(kind), vErr.Field)
		s.logger.Info("request rejected", "kind", kind, "field", vErr.Field, "error", err)
	}
	return verdict.Verdict{}, err
}

func (s *Service) record(ctx context.Context, span trace.Span, requestID, subjectID string, v verdict.Verdict, evaluatedAt time.Time) {
	span.SetAttributes(
		attribute.Bool("gate.resolved", v.Resolved),
		attribute.Bool("gate.escalate", v.Escalate),
		attribute.String("gate.reason_code", v.Reason()),
	)
	s.metrics.ObserveDecision(string(v.Kind), outcome(v), v.Reason())

	if v.Escalate {
		s.logger.Info("escalation required",
			"kind", v.Kind,
			"subject_id", subjectID,
			"reason_code", v.Reason(),
			"urgency", v.Urgency,
			"request_id", requestID,
		)
	}

	if s.audit == nil {
		return
	}
	if err := s.audit.LogDecision(ctx, requestID, subjectID, v, evaluatedAt); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to audit decision", "error", err, "kind", v.Kind, "subject_id", subjectID)
	}
}

func outcome(v verdict.Verdict) string {
	switch {
	case v.Escalate:
		return "escalated"
	case v.Resolved:
		return "resolved"
	default:
		return "declined"
	}
}
