package handlers

import (
	"strings"
	"time"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/policy"
	"github.com/wolfman30/telehealth-gate/internal/refill"
)

// Record systems send either calendar dates or full timestamps.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, policy.Invalid(field, "unparseable date "+raw)
}

type prescriptionPayload struct {
	ID               string `json:"id"`
	Medication       string `json:"medication"`
	Dosage           string `json:"dosage"`
	RefillsRemaining int    `json:"refills_remaining"`
	DaysSupply       int    `json:"days_supply"`
	LastFilled       string `json:"last_filled"`
	ExpirationDate   string `json:"expiration_date"`
	Prescriber       string `json:"prescriber"`
	Pharmacy         string `json:"pharmacy"`
	Controlled       bool   `json:"controlled"`
}

func (p prescriptionPayload) toPrescription() (refill.Prescription, error) {
	lastFilled, err := parseTime("last_filled", p.LastFilled)
	if err != nil {
		return refill.Prescription{}, err
	}
	expiration, err := parseTime("expiration_date", p.ExpirationDate)
	if err != nil {
		return refill.Prescription{}, err
	}
	return refill.Prescription{
		ID:               p.ID,
		Medication:       p.Medication,
		Dosage:           p.Dosage,
		RefillsRemaining: p.RefillsRemaining,
		DaysSupply:       p.DaysSupply,
		LastFilled:       lastFilled,
		ExpirationDate:   expiration,
		Prescriber:       p.Prescriber,
		Pharmacy:         p.Pharmacy,
		Controlled:       p.Controlled,
	}, nil
}

type appointmentPayload struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Provider    string `json:"provider"`
	Location    string `json:"location"`
	ScheduledAt string `json:"scheduled_at"`
	Status      string `json:"status"`
}

func (p appointmentPayload) toAppointment() (appointments.Appointment, error) {
	scheduledAt, err := parseTime("scheduled_at", p.ScheduledAt)
	if err != nil {
		return appointments.Appointment{}, err
	}
	raw := p.Status
	if strings.TrimSpace(raw) == "" {
		raw = string(appointments.StatusScheduled)
	}
	status, err := appointments.ParseStatus(raw)
	if err != nil {
		return appointments.Appointment{}, err
	}
	return appointments.Appointment{
		ID:          p.ID,
		Type:        p.Type,
		Provider:    p.Provider,
		Location:    p.Location,
		ScheduledAt: scheduledAt,
		Status:      status,
	}, nil
}

type refillRequestPayload struct {
	PrescriptionID string               `json:"prescription_id"`
	Prescription   *prescriptionPayload `json:"prescription"`
	Now            string               `json:"now"`
}

type refillBatchPayload struct {
	Requests []refillRequestPayload `json:"requests"`
}

type appointmentRequestPayload struct {
	AppointmentID string              `json:"appointment_id"`
	Appointment   *appointmentPayload `json:"appointment"`
	Now           string              `json:"now"`
}

type searchRequestPayload struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	TopK     int    `json:"top_k"`
}
