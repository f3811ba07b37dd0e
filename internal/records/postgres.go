package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/telehealth-gate/internal/appointments"
	"github.com/wolfman30/telehealth-gate/internal/refill"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads records from the prescriptions and appointments
// tables.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q rowQuerier) *PostgresRepository {
	if q == nil {
		panic("records: querier required")
	}
	return &PostgresRepository{pool: q}
}

const prescriptionColumns = `id, medication, dosage, refills_remaining, days_supply,
	last_filled, expiration_date, prescriber, pharmacy, controlled`

const appointmentColumns = `id, appointment_type, provider, location, scheduled_at, status`

func (r *PostgresRepository) ListPrescriptions(ctx context.Context) ([]refill.Prescription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("records: list prescriptions: %w", err)
	}
	defer rows.Close()

	var out []refill.Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list prescriptions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetPrescription(ctx context.Context, id string) (refill.Prescription, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id)
	p, err := scanPrescription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return refill.Prescription{}, ErrPrescriptionNotFound
	}
	return p, err
}

func (r *PostgresRepository) ListAppointments(ctx context.Context) ([]appointments.Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY scheduled_at, id`)
	if err != nil {
		return nil, fmt.Errorf("records: list appointments: %w", err)
	}
	defer rows.Close()

	var out []appointments.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list appointments: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetAppointment(ctx context.Context, id string) (appointments.Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return appointments.Appointment{}, ErrAppointmentNotFound
	}
	return a, err
}

func scanPrescription(row pgx.Row) (refill.Prescription, error) {
	var p refill.Prescription
	if err := row.Scan(
		&p.ID,
		&p.Medication,
		&p.Dosage,
		&p.RefillsRemaining,
		&p.DaysSupply,
		&p.LastFilled,
		&p.ExpirationDate,
		&p.Prescriber,
		&p.Pharmacy,
		&p.Controlled,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("records: scan prescription: %w", err)
	}
	return p, nil
}

func scanAppointment(row pgx.Row) (appointments.Appointment, error) {
	var (
		a      appointments.Appointment
		status string
	)
	if err := row.Scan(&a.ID, &a.Type, &a.Provider, &a.Location, &a.ScheduledAt, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("records: scan appointment: %w", err)
	}
	parsed, err := appointments.ParseStatus(status)
	if err != nil {
		return a, fmt.Errorf("records: appointment %s: %w", a.ID, err)
	}
	a.Status = parsed
	return a, nil
}
