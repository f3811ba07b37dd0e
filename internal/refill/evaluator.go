package refill

import (
	"time"

	"github.com/wolfman30/telehealth-gate/internal/controlled"
	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// Refill timing: a new fill is allowed once 80% of the days supply has
// elapsed, counted in whole days (30 days → day 24).
const (
	thresholdNumerator   = 8
	thresholdDenominator = 10
)

// Classifier reports whether a medication name is a controlled substance.
type Classifier interface {
	IsControlled(name string) bool
}

// Evaluator applies the refill rules in fixed priority order.
type Evaluator struct {
	classifier Classifier
	rules      policy.Rules[Prescription]
}

// NewEvaluator creates an evaluator. A nil classifier uses the default
// controlled-substance registry.
func NewEvaluator(classifier Classifier) *Evaluator {
	if classifier == nil {
		classifier = controlled.Default()
	}
	e := &Evaluator{classifier: classifier}
	e.rules = policy.Rules[Prescription]{
		{Name: "controlled_substance", Check: e.checkControlled},
		{Name: "refills_remaining", Check: checkRefills},
		{Name: "expiration", Check: checkExpiration},
		{Name: "refill_timing", Check: checkTiming},
	}
	return e
}

// Evaluate returns the refill verdict for p at now. Malformed records yield a
// *policy.ValidationError and no verdict.
func (e *Evaluator) Evaluate(p Prescription, now time.Time) (policy.Verdict, error) {
	if err := p.Validate(); err != nil {
		return policy.Verdict{}, err
	}
	return e.rules.Evaluate(p, now), nil
}

// RuleNames lists the rules in precedence order.
func (e *Evaluator) RuleNames() []string {
	return e.rules.Names()
}

// EarliestRefillDate is the first calendar day on which p may be refilled.
func EarliestRefillDate(p Prescription) time.Time {
	earliestDay := p.DaysSupply * thresholdNumerator / thresholdDenominator
	return policy.CivilDate(p.LastFilled).AddDate(0, 0, earliestDay)
}

func (e *Evaluator) checkControlled(p Prescription, _ time.Time) (policy.Block, bool) {
	if !p.Controlled && !e.classifier.IsControlled(p.Medication) {
		return policy.Block{}, false
	}
	return policy.Block{
		Reason:           policy.ReasonControlledSubstance,
		Escalate:         true,
		EscalationReason: "controlled substance requires provider authorization",
	}, true
}

func checkRefills(p Prescription, _ time.Time) (policy.Block, bool) {
	if p.RefillsRemaining > 0 {
		return policy.Block{}, false
	}
	return policy.Block{
		Reason:           policy.ReasonNoRefillsRemaining,
		Escalate:         true,
		EscalationReason: "new prescription required from provider",
	}, true
}

func checkExpiration(p Prescription, now time.Time) (policy.Block, bool) {
	if !policy.CivilDate(now).After(policy.CivilDate(p.ExpirationDate)) {
		return policy.Block{}, false
	}
	return policy.Block{
		Reason:           policy.ReasonPrescriptionExpired,
		Escalate:         true,
		EscalationReason: "prescription expired; renewal required from provider",
	}, true
}

func checkTiming(p Prescription, now time.Time) (policy.Block, bool) {
	earliest := EarliestRefillDate(p)
	if !policy.CivilDate(now).Before(earliest) {
		return policy.Block{}, false
	}
	reported := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, now.Location())
	return policy.Block{
		Reason:           policy.ReasonTooSoon,
		Escalate:         true,
		EscalationReason: "refill requested before 80% of days supply elapsed",
		EarliestEligible: &reported,
	}, true
}
