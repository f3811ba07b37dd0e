// Package refill decides whether a prescription on file may be refilled
// without a provider.
package refill

import (
	"strings"
	"time"

	"github.com/wolfman30/telehealth-gate/internal/policy"
)

// Prescription is a prescription record as supplied by the record system.
type Prescription struct {
	ID               string    `json:"id"`
	Medication       string    `json:"medication"`
	Dosage           string    `json:"dosage"`
	RefillsRemaining int       `json:"refills_remaining"`
	DaysSupply       int       `json:"days_supply"`
	LastFilled       time.Time `json:"last_filled"`
	ExpirationDate   time.Time `json:"expiration_date"`
	Prescriber       string    `json:"prescriber"`
	Pharmacy         string    `json:"pharmacy,omitempty"`
	// Controlled is the record system's own scheduling flag. It blocks
	// automated refills even when the classifier does not know the name.
	Controlled bool `json:"controlled,omitempty"`
}

// Validate rejects records the policy cannot be evaluated against.
func (p Prescription) Validate() error {
	if strings.TrimSpace(p.Medication) == "" {
		return policy.Invalid("medication", "is required")
	}
	if p.DaysSupply <= 0 {
		return policy.Invalid("days_supply", "must be positive")
	}
	if p.RefillsRemaining < 0 {
		return policy.Invalid("refills_remaining", "must not be negative")
	}
	if p.LastFilled.IsZero() {
		return policy.Invalid("last_filled", "is required")
	}
	if p.ExpirationDate.IsZero() {
		return policy.Invalid("expiration_date", "is required")
	}
	return nil
}
