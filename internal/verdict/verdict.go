// Package verdict normalizes refill, appointment and retrieval outcomes into
// the single shape the calling agent runtime consumes.
package verdict

import (
	"github.com/wolfman30/telehealth-gate/internal/knowledge"
	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// Kind names the evaluation that produced a verdict.
type Kind string

const (
	KindRefill       Kind = "refill"
	KindCheckIn      Kind = "check_in"
	KindCancellation Kind = "cancellation"
	KindKnowledge    Kind = "knowledge"
)

// Retrieval reason codes. Eligibility reasons come from policy.
const (
	ReasonNoKnowledgeMatch policy.ReasonCode = "no_knowledge_match"
	ReasonPartialMatch     policy.ReasonCode = "partial_match"
	ReasonAmbiguousQuery   policy.ReasonCode = "ambiguous_query"
)

// Urgency is a hint for the host's ticketing; it never changes the decision.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
)

// Disclosure tells the host how a retrieved answer may be presented.
type Disclosure string

const (
	DisclosureDirect   Disclosure = "direct"
	DisclosureHedged   Disclosure = "hedged"
	DisclosureCautious Disclosure = "cautious"
	DisclosureWithhold Disclosure = "withhold"
)

// Verdict is the uniform outcome handed back to the host.
type Verdict struct {
	Kind       Kind    `json:"kind"`
	Resolved   bool    `json:"resolved"`
	Escalate   bool    `json:"escalate"`
	ReasonCode *string `json:"reason_code"`
	Ambiguous  bool    `json:"ambiguous"`
	Urgency    Urgency `json:"urgency,omitempty"`
	Detail     Detail  `json:"detail"`
}

// Detail carries the evaluator output the verdict was built from.
type Detail struct {
	Eligibility *policy.Verdict   `json:"eligibility,omitempty"`
	Retrieval   *knowledge.Result `json:"retrieval,omitempty"`
	Disclosure  Disclosure        `json:"disclosure,omitempty"`
	// OfferEscalation is set for partial matches: answer, but offer a human.
	OfferEscalation bool `json:"offer_escalation,omitempty"`
}

// Reason returns the reason code or "".
func (v Verdict) Reason() string {
	if v.ReasonCode == nil {
		return ""
	}
	return *v.ReasonCode
}

func reasonPtr(code policy.ReasonCode) *string {
	if code == "" {
		return nil
	}
	s := string(code)
	return &s
}
