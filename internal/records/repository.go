// Package records looks up the prescription and appointment records the gate
// evaluates. Records are read-only here; fulfillment systems own mutation.
package records

import (
	"context"
	"errors"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/refill"
)

var (
	// ErrPrescriptionNotFound is returned when no prescription has the ID.
	ErrPrescriptionNotFound = errors.New("records: prescription not found")
	// ErrAppointmentNotFound is returned when no appointment has the ID.
	ErrAppointmentNotFound = errors.New("records: appointment not found")
)

// Repository reads patient records.
type Repository interface {
	ListPrescriptions(ctx context.Context) ([]refill.Prescription, error)
	GetPrescription(ctx context.Context, id string) (refill.Prescription, error)
	ListAppointments(ctx context.Context) ([]appointments.Appointment, error)
	GetAppointment(ctx context.Context, id string) (appointments.Appointment, error)
}
