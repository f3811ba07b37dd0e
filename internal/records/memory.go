package records

import (
	"context"
	"slices"
	"time"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/refill"
)

// MemoryRepository serves a fixed record set. It is never mutated after
// construction, so concurrent reads need no locking.
type MemoryRepository struct {
	prescriptions []refill.Prescription
	appointments  []appointments.Appointment
}

// NewMemoryRepository copies the given records.
func NewMemoryRepository(rx []refill.Prescription, appts []appointments.Appointment) *MemoryRepository {
	return &MemoryRepository{
		prescriptions: slices.Clone(rx),
		appointments:  slices.Clone(appts),
	}
}

// NewSeededRepository returns the demo patient's records.
func NewSeededRepository() *MemoryRepository {
	return NewMemoryRepository(SeedPrescriptions(), SeedAppointments())
}

func (r *MemoryRepository) ListPrescriptions(ctx context.Context) ([]refill.Prescription, error) {
	return slices.Clone(r.prescriptions), nil
}

func (r *MemoryRepository) GetPrescription(ctx context.Context, id string) (refill.Prescription, error) {
	for _, p := range r.prescriptions {
		if p.ID == id {
			return p, nil
		}
	}
	return refill.Prescription{}, ErrPrescriptionNotFound
}

func (r *MemoryRepository) ListAppointments(ctx context.Context) ([]appointments.Appointment, error) {
	return slices.Clone(r.appointments), nil
}

func (r *MemoryRepository) GetAppointment(ctx context.Context, id string) (appointments.Appointment, error) {
	for _, a := range r.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return appointments.Appointment{}, ErrAppointmentNotFound
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeedPrescriptions is the demo patient's medication list.
func SeedPrescriptions() []refill.Prescription {
	return []refill.Prescription{
		{
			ID:               "RX-001",
			Medication:       "Lisinopril 10mg",
			Dosage:           "Once daily",
			RefillsRemaining: 2,
			DaysSupply:       30,
			LastFilled:       date(2024, time.September, 15),
			ExpirationDate:   date(2025, time.September, 15),
			Prescriber:       "Dr. Emily Chen",
			Pharmacy:         "HealthPlus Pharmacy",
		},
		{
			ID:               "RX-002",
			Medication:       "Metformin 500mg",
			Dosage:           "Twice daily with meals",
			RefillsRemaining: 0,
			DaysSupply:       30,
			LastFilled:       date(2024, time.August, 1),
			ExpirationDate:   date(2025, time.August, 1),
			Prescriber:       "Dr. Emily Chen",
			Pharmacy:         "HealthPlus Pharmacy",
		},
		{
			ID:               "RX-003",
			Medication:       "Atorvastatin 20mg",
			Dosage:           "Once daily at bedtime",
			RefillsRemaining: 3,
			DaysSupply:       30,
			LastFilled:       date(2024, time.October, 1),
			ExpirationDate:   date(2025, time.October, 1),
			Prescriber:       "Dr. Michael Park",
			Pharmacy:         "HealthPlus Pharmacy",
		},
	}
}

// SeedAppointments is the demo patient's upcoming visits.
func SeedAppointments() []appointments.Appointment {
	return []appointments.Appointment{
		{
			ID:          "APT-2024-1001",
			Type:        "Annual Physical",
			Provider:    "Dr. Emily Chen",
			Location:    "Main Clinic - Room 203",
			ScheduledAt: time.Date(2024, time.October, 18, 10, 0, 0, 0, time.UTC),
			Status:      appointments.StatusScheduled,
		},
		{
			ID:          "APT-2024-1002",
			Type:        "Follow-up Visit",
			Provider:    "Dr. Michael Park",
			Location:    "Cardiology Center - Suite 400",
			ScheduledAt: time.Date(2024, time.October, 25, 14, 30, 0, 0, time.UTC),
			Status:      appointments.StatusScheduled,
		},
		{
			ID:          "APT-2024-1003",
			Type:        "Lab Work",
			Provider:    "LabCorp",
			Location:    "Lab Services - Building B",
			ScheduledAt: time.Date(2024, time.November, 5, 9, 0, 0, 0, time.UTC),
			Status:      appointments.StatusScheduled,
		},
	}
}
