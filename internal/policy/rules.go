package policy

import "time"

// Block describes why a rule refused the action.
type Block struct {
	Reason           ReasonCode
	Escalate         bool
	EscalationReason string
	EarliestEligible *time.Time
}

// Rule is a single named check. Check returns a Block and true when the
// subject fails the rule.
type Rule[T any] struct {
	Name  string
	Check func(subject T, now time.Time) (Block, bool)
}

// Rules is an ordered rule list. Order is precedence: the first failing rule
// decides the verdict and the remaining rules are not consulted.
type Rules[T any] []Rule[T]

// Evaluate runs the rules in order against subject at now.
func (rs Rules[T]) Evaluate(subject T, now time.Time) Verdict {
	for _, rule := range rs {
		block, failed := rule.Check(subject, now)
		if !failed {
			continue
		}
		return Verdict{
			Eligible:         false,
			Reasons:          []ReasonCode{block.Reason},
			Escalate:         block.Escalate,
			EscalationReason: block.EscalationReason,
			EarliestEligible: block.EarliestEligible,
			EvaluatedAt:      now,
		}
	}
	return Eligible(now)
}

// Names lists rule names in evaluation order.
func (rs Rules[T]) Names() []string {
	names := make([]string, len(rs))
	for i, rule := range rs {
		names[i] = rule.Name
	}
	return names
}

// CivilDate returns the calendar date of t, as seen in t's own location, at
// midnight UTC. Date-only record fields compare without shifting across zones.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
