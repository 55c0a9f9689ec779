package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// BloodRequestStore implements store.BloodRequestStore using PostgreSQL.
type BloodRequestStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *BloodRequestStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const requestColumns = `id, hospital_name, blood_type, units, urgency, status, requested_at, updated_at`

// Create creates a new blood request.
func (s *BloodRequestStore) Create(ctx context.Context, req *models.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (id, hospital_name, blood_type, units, urgency, status,
			requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	req.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, query,
		req.ID,
		req.HospitalName,
		string(req.BloodType),
		req.Units,
		string(req.Urgency),
		string(req.Status),
		req.RequestedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return models.NewAdapterError("inserting blood request", err)
	}
	return nil
}

// Get retrieves a request by ID.
func (s *BloodRequestStore) Get(ctx context.Context, id string) (*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`

	req, err := scanRequest(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.NewAdapterError("scanning blood request", err)
	}
	return req, nil
}

// List retrieves requests matching the filter, newest first.
func (s *BloodRequestStore) List(ctx context.Context, filter store.RequestFilter) ([]*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.HospitalName != "" {
		args = append(args, filter.HospitalName)
		query += fmt.Sprintf(" AND hospital_name = $%d", len(args))
	}
	query += " ORDER BY requested_at DESC"

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewAdapterError("listing blood requests", err)
	}
	defer rows.Close()

	var reqs []*models.BloodRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, models.NewAdapterError("scanning blood request", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewAdapterError("listing blood requests", err)
	}
	return reqs, nil
}

// TransitionStatus moves a request from one status to another as a single
// conditional update, so two concurrent decisions cannot both win.
func (s *BloodRequestStore) TransitionStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	query := `UPDATE blood_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	res, err := s.conn().ExecContext(ctx, query, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return models.NewAdapterError("transitioning request status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.NewAdapterError("transitioning request status", err)
	}
	if n == 0 {
		// Either the request is absent or it is not in the expected status.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return models.ErrInvalidTransition
	}
	return nil
}

func scanRequest(row rowScanner) (*models.BloodRequest, error) {
	var req models.BloodRequest
	var bloodType, urgency, status string

	err := row.Scan(
		&req.ID,
		&req.HospitalName,
		&bloodType,
		&req.Units,
		&urgency,
		&status,
		&req.RequestedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.BloodType = models.BloodType(bloodType)
	req.Urgency = models.Urgency(urgency)
	req.Status = models.RequestStatus(status)
	return &req, nil
}
