package appointments

import (
	"time"

	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// Window is both the check-in lead time and the free-cancellation notice.
const Window = 24 * time.Hour

var checkInRules = policy.Rules[Appointment]{
	{Name: "already_checked_in", Check: func(a Appointment, _ time.Time) (policy.Block, bool) {
		return policy.Block{Reason: policy.ReasonAlreadyCheckedIn}, a.Status == StatusCheckedIn
	}},
	{Name: "active", Check: func(a Appointment, _ time.Time) (policy.Block, bool) {
		return policy.Block{
			Reason:           policy.ReasonAppointmentNotActive,
			Escalate:         true,
			EscalationReason: "appointment is " + string(a.Status),
		}, a.Status != StatusScheduled
	}},
	{Name: "window_open", Check: func(a Appointment, now time.Time) (policy.Block, bool) {
		opens := a.ScheduledAt.Add(-Window)
		return policy.Block{
			Reason:           policy.ReasonTooEarly,
			EarliestEligible: &opens,
		}, now.Before(opens)
	}},
	{Name: "window_closed", Check: func(a Appointment, now time.Time) (policy.Block, bool) {
		return policy.Block{
			Reason:           policy.ReasonWindowPassed,
			Escalate:         true,
			EscalationReason: "check-in window passed; scheduling team must reschedule",
		}, now.After(a.ScheduledAt)
	}},
}

var cancellationRules = policy.Rules[Appointment]{
	{Name: "active", Check: func(a Appointment, _ time.Time) (policy.Block, bool) {
		return policy.Block{Reason: policy.ReasonAppointmentNotActive},
			a.Status == StatusCancelled || a.Status == StatusCompleted
	}},
	{Name: "notice", Check: func(a Appointment, now time.Time) (policy.Block, bool) {
		return policy.Block{
			Reason:           policy.ReasonLateCancellation,
			Escalate:         true,
			EscalationReason: "cancellation inside 24h; fee decision belongs to scheduling team",
		}, now.After(a.ScheduledAt.Add(-Window))
	}},
}

// EvaluateCheckIn decides whether a can be checked in at now. The window is
// [ScheduledAt-24h, ScheduledAt], both ends inclusive.
func EvaluateCheckIn(a Appointment, now time.Time) (policy.Verdict, error) {
	if err := a.Validate(); err != nil {
		return policy.Verdict{}, err
	}
	return checkInRules.Evaluate(a, now), nil
}

// EvaluateCancellation decides whether a can be cancelled without fee risk
// at now. Exactly 24h of notice still qualifies.
func EvaluateCancellation(a Appointment, now time.Time) (policy.Verdict, error) {
	if err := a.Validate(); err != nil {
		return policy.Verdict{}, err
	}
	return cancellationRules.Evaluate(a, now), nil
}
