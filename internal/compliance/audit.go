// Package compliance records an immutable audit trail of gate decisions.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-gate/internal/verdict"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventRefillEvaluated is logged for every refill verdict.
	EventRefillEvaluated AuditEventType = "decision.refill_evaluated"
	// EventCheckInEvaluated is logged for every check-in verdict.
	EventCheckInEvaluated AuditEventType = "decision.check_in_evaluated"
	// EventCancellationEvaluated is logged for every cancellation verdict.
	EventCancellationEvaluated AuditEventType = "decision.cancellation_evaluated"
	// EventKnowledgeSearched is logged for every knowledge search verdict.
	EventKnowledgeSearched AuditEventType = "decision.knowledge_searched"
)

// EventTypeFor maps a verdict kind to its audit event type.
func EventTypeFor(kind verdict.Kind) AuditEventType {
	switch kind {
	case verdict.KindRefill:
		return EventRefillEvaluated
	case verdict.KindCheckIn:
		return EventCheckInEvaluated
	case verdict.KindCancellation:
		return EventCancellationEvaluated
	default:
		return EventKnowledgeSearched
	}
}

// AuditEvent represents an immutable decision record. SubjectID is a record
// identifier; free text from the patient is never stored.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	RequestID   string          `json:"request_id,omitempty"`
	SubjectID   string          `json:"subject_id,omitempty"`
	Resolved    bool            `json:"resolved"`
	Escalate    bool            `json:"escalate"`
	ReasonCode  string          `json:"reason_code,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	Urgency   string `json:"urgency,omitempty"`
	Ambiguous bool   `json:"ambiguous,omitempty"`

	// For knowledge searches
	Tier          string   `json:"tier,omitempty"`
	TopScore      float64  `json:"top_score,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
	CategoryScope string   `json:"category_scope,omitempty"`
}

// AuditService handles decision audit logging.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	query := `
		INSERT INTO decision_audit_events (
			id, event_type, request_id, subject_id, resolved,
			escalate, reason_code, details, evaluated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.RequestID),
		nullString(event.SubjectID),
		event.Resolved,
		event.Escalate,
		nullString(event.ReasonCode),
		nullJSON(event.Details),
		event.EvaluatedAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogDecision records v for the record identified by subjectID.
func (s *AuditService) LogDecision(ctx context.Context, requestID, subjectID string, v verdict.Verdict, evaluatedAt time.Time) error {
	details := AuditDetails{
		Urgency:   string(v.Urgency),
		Ambiguous: v.Ambiguous,
	}
	if r := v.Detail.Retrieval; r != nil {
		details.Tier = string(r.Tier)
		details.TopScore = r.TopScore()
		details.CategoryScope = string(r.Category)
		for _, m := range r.Matches {
			details.DocumentIDs = append(details.DocumentIDs, m.Document.ID)
		}
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventTypeFor(v.Kind),
		RequestID:   requestID,
		SubjectID:   subjectID,
		Resolved:    v.Resolved,
		Escalate:    v.Escalate,
		ReasonCode:  v.Reason(),
		Details:     detailsJSON,
		EvaluatedAt: evaluatedAt,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, request_id, subject_id, resolved,
			   escalate, reason_code, details, evaluated_at, created_at
		FROM decision_audit_events
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, filter.SubjectID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.EscalatedOnly {
		query += " AND escalate = TRUE"
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var requestID, subjectID, reason sql.NullString
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &requestID, &subjectID, &e.Resolved,
			&e.Escalate, &reason, &details, &e.EvaluatedAt, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.RequestID = requestID.String
		e.SubjectID = subjectID.String
		e.ReasonCode = reason.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to read audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	SubjectID     string
	EventType     AuditEventType
	EscalatedOnly bool
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
	Offset        int
}

// nullJSON passes details as text so lib/pq does not encode them as bytea.
func nullJSON(raw json.RawMessage) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
