// Package policy holds the verdict and rule types shared by the eligibility
// evaluators.
package policy

import "time"

// ReasonCode is a stable machine-readable identifier naming why a verdict
// was ineligible or escalated.
type ReasonCode string

const (
	ReasonControlledSubstance  ReasonCode = "controlled_substance"
	ReasonNoRefillsRemaining   ReasonCode = "no_refills_remaining"
	ReasonPrescriptionExpired  ReasonCode = "prescription_expired"
	ReasonTooSoon              ReasonCode = "too_soon"
	ReasonAlreadyCheckedIn     ReasonCode = "already_checked_in"
	ReasonTooEarly             ReasonCode = "too_early"
	ReasonWindowPassed         ReasonCode = "window_passed"
	ReasonLateCancellation     ReasonCode = "late_cancellation_fee_risk"
	ReasonAppointmentNotActive ReasonCode = "appointment_not_active"
)

// Verdict is the outcome of an eligibility evaluation.
type Verdict struct {
	Eligible         bool         `json:"eligible"`
	Reasons          []ReasonCode `json:"reasons"`
	Escalate         bool         `json:"escalate"`
	EscalationReason string       `json:"escalation_reason,omitempty"`
	// EarliestEligible is set when the blocking rule knows when it clears.
	EarliestEligible *time.Time `json:"earliest_eligible,omitempty"`
	EvaluatedAt      time.Time  `json:"evaluated_at"`
}

// Reason returns the blocking reason, or "" for an eligible verdict.
func (v Verdict) Reason() ReasonCode {
	if len(v.Reasons) == 0 {
		return ""
	}
	return v.Reasons[0]
}

// Eligible builds a passing verdict.
func Eligible(now time.Time) Verdict {
	return Verdict{Eligible: true, Reasons: []ReasonCode{}, EvaluatedAt: now}
}
