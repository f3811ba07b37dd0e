// Package appointments evaluates check-in and cancellation requests against
// the clinic's time-window policy.
package appointments

import (
	"strings"
	"time"

	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCheckedIn Status = "checked_in"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCheckedIn, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts the canonical values plus the hyphenated spelling.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	if !s.Valid() {
		return "", policy.Invalid("status", "unknown appointment status "+raw)
	}
	return s, nil
}

// Appointment is an appointment record as supplied by the scheduling system.
type Appointment struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Provider    string    `json:"provider"`
	Location    string    `json:"location"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
}

// Validate rejects records the policy cannot be evaluated against.
func (a Appointment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return policy.Invalid("id", "is required")
	}
	if a.ScheduledAt.IsZero() {
		return policy.Invalid("scheduled_at", "is required")
	}
	if !a.Status.Valid() {
		return policy.Invalid("status", "unknown appointment status "+string(a.Status))
	}
	return nil
}
