package verdict

import (
	"github.com/wolfman30/telehealth-gate/internal/knowledge"
	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// DefaultAmbiguityMargin is the score gap under which the top two retrieval
// results count as a tie.
const DefaultAmbiguityMargin = 5.0

// Assembler builds Verdicts. It is immutable and safe for concurrent use.
type Assembler struct {
	margin float64
}

// NewAssembler returns an Assembler using margin as the ambiguity gap. A
// margin of 0 turns ambiguity detection off; a negative margin selects
// DefaultAmbiguityMargin.
func NewAssembler(margin float64) *Assembler {
	if margin < 0 {
		margin = DefaultAmbiguityMargin
	}
	return &Assembler{margin: margin}
}

// Margin returns the configured ambiguity gap.
func (a *Assembler) Margin() float64 { return a.margin }

// FromEligibility wraps a refill or appointment verdict.
func (a *Assembler) FromEligibility(kind Kind, v policy.Verdict) Verdict {
	out := Verdict{
		Kind:       kind,
		Resolved:   v.Eligible,
		Escalate:   v.Escalate,
		ReasonCode: reasonPtr(v.Reason()),
		Detail:     Detail{Eligibility: &v},
	}
	if v.Escalate {
		out.Urgency = urgencyFor(v.Reason())
	}
	return out
}

func urgencyFor(code policy.ReasonCode) Urgency {
	switch code {
	case policy.ReasonControlledSubstance, policy.ReasonPrescriptionExpired, policy.ReasonNoRefillsRemaining:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

// FromRetrieval classifies a retrieval result. Ambiguity takes precedence over
// the numeric tier: two near-tied usable matches mean the host should ask a
// clarifying question, even when both clear the High threshold.
func (a *Assembler) FromRetrieval(r knowledge.Result) Verdict {
	out := Verdict{Kind: KindKnowledge, Detail: Detail{Retrieval: &r}}

	switch {
	case r.NoResults || len(r.Matches) == 0:
		out.Escalate = true
		out.Urgency = UrgencyNormal
		out.ReasonCode = reasonPtr(ReasonNoKnowledgeMatch)
		out.Detail.Disclosure = DisclosureWithhold
	case a.Ambiguous(r):
		out.Ambiguous = true
		out.ReasonCode = reasonPtr(ReasonAmbiguousQuery)
		out.Detail.Disclosure = DisclosureWithhold
	default:
		out.Resolved = true
		switch r.Tier {
		case knowledge.TierHigh:
			out.Detail.Disclosure = DisclosureDirect
		case knowledge.TierGood:
			out.Detail.Disclosure = DisclosureHedged
		default:
			out.ReasonCode = reasonPtr(ReasonPartialMatch)
			out.Detail.Disclosure = DisclosureCautious
			out.Detail.OfferEscalation = true
		}
	}
	return out
}

// Ambiguous reports whether the top two matches differ by less than the
// margin while both are at least Partial confidence. It is always false when
// the margin is 0.
func (a *Assembler) Ambiguous(r knowledge.Result) bool {
	if a.margin == 0 || len(r.Matches) < 2 {
		return false
	}
	first, second := r.Matches[0].Score, r.Matches[1].Score
	if first < knowledge.PartialThreshold || second < knowledge.PartialThreshold {
		return false
	}
	return first-second < a.margin
}
