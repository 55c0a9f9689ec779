package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// AppointmentStore implements store.AppointmentStore using PostgreSQL.
type AppointmentStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *AppointmentStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const appointmentColumns = `id, donor_id, date, location, status, created_at`

// Create creates a new appointment.
func (s *AppointmentStore) Create(ctx context.Context, appt *models.Appointment) error {
	query := `
		INSERT INTO appointments (id, donor_id, date, location, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn().ExecContext(ctx, query,
		appt.ID,
		appt.DonorID,
		appt.Date.UTC(),
		appt.Location,
		string(appt.Status),
		appt.CreatedAt,
	)
	if err != nil {
		return models.NewAdapterError("inserting appointment", err)
	}
	return nil
}

// Get retrieves an appointment by ID.
func (s *AppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.NewAdapterError("scanning appointment", err)
	}
	return appt, nil
}

// ListByDonor retrieves a donor's appointments, newest first.
func (s *AppointmentStore) ListByDonor(ctx context.Context, donorID string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE donor_id = $1 ORDER BY date DESC`
	return s.list(ctx, query, donorID)
}

// ListUpcoming retrieves non-terminal appointments scheduled within the window.
func (s *AppointmentStore) ListUpcoming(ctx context.Context, from, to time.Time) ([]*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date >= $1 AND date < $2 AND status IN ('Pending', 'Confirmed')
		ORDER BY date`
	return s.list(ctx, query, from.UTC(), to.UTC())
}

// SetStatus sets an appointment's status.
func (s *AppointmentStore) SetStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $2 WHERE id = $1`

	res, err := s.conn().ExecContext(ctx, query, id, string(status))
	if err != nil {
		return models.NewAdapterError("updating appointment status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *AppointmentStore) list(ctx context.Context, query string, args ...any) ([]*models.Appointment, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewAdapterError("listing appointments", err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, models.NewAdapterError("scanning appointment", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewAdapterError("listing appointments", err)
	}
	return appts, nil
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var appt models.Appointment
	var status string

	err := row.Scan(
		&appt.ID,
		&appt.DonorID,
		&appt.Date,
		&appt.Location,
		&status,
		&appt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.Status = models.AppointmentStatus(status)
	return &appt, nil
}
