package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// BloodUnitStore implements store.BloodUnitStore using PostgreSQL.
type BloodUnitStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *BloodUnitStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const unitColumns = `id, bag_id, blood_type, collection_date, expiry_date, location, status, created_at, updated_at`

// Create admits a unit into inventory. Bag ID uniqueness is enforced by the
// database.
func (s *BloodUnitStore) Create(ctx context.Context, unit *models.BloodUnit) error {
	query := `
		INSERT INTO blood_units (id, bag_id, blood_type, collection_date, expiry_date,
			location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, query,
		unit.ID,
		unit.BagID,
		string(unit.BloodType),
		unit.CollectionDate.UTC(),
		unit.ExpiryDate.UTC(),
		nullString(unit.Location),
		string(unit.Status),
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return models.NewAdapterError("inserting blood unit", err)
	}
	return nil
}

// Get retrieves a unit by ID.
func (s *BloodUnitStore) Get(ctx context.Context, id string) (*models.BloodUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE id = $1`

	unit, err := scanUnit(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.NewAdapterError("scanning blood unit", err)
	}
	return unit, nil
}

// GetMany retrieves the units with the given IDs.
func (s *BloodUnitStore) GetMany(ctx context.Context, ids []string) ([]*models.BloodUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE id = ANY($1) ORDER BY collection_date`
	return s.listQuery(ctx, query, pq.Array(ids))
}

// List retrieves units matching the filter, oldest collection first.
func (s *BloodUnitStore) List(ctx context.Context, filter store.UnitFilter) ([]*models.BloodUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE 1=1`
	var args []any

	if filter.BloodType != "" {
		args = append(args, string(filter.BloodType))
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	if filter.Location != "" {
		args = append(args, filter.Location)
		query += fmt.Sprintf(" AND location = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY collection_date"

	return s.listQuery(ctx, query, args...)
}

// CountByType aggregates Available units per blood type for the filter.
func (s *BloodUnitStore) CountByType(ctx context.Context, filter store.UnitFilter) (map[models.BloodType]int, error) {
	query := `SELECT blood_type, COUNT(*) FROM blood_units WHERE status = 'Available'`
	var args []any

	if filter.BloodType != "" {
		args = append(args, string(filter.BloodType))
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	if filter.Location != "" {
		args = append(args, filter.Location)
		query += fmt.Sprintf(" AND location = $%d", len(args))
	}
	query += " GROUP BY blood_type"

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewAdapterError("counting blood units", err)
	}
	defer rows.Close()

	counts := make(map[models.BloodType]int)
	for rows.Next() {
		var bloodType string
		var count int
		if err := rows.Scan(&bloodType, &count); err != nil {
			return nil, models.NewAdapterError("scanning stock count", err)
		}
		counts[models.BloodType(bloodType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewAdapterError("counting blood units", err)
	}
	return counts, nil
}

// ReserveOldestAvailable atomically claims count Available units of the given
// type, oldest collection date first, and marks them Reserved. The select and
// update run in one transaction with row locks, so two concurrent callers
// never claim the same unit.
func (s *BloodUnitStore) ReserveOldestAvailable(ctx context.Context, bloodType models.BloodType, count int) ([]string, error) {
	if count <= 0 {
		return nil, &models.ValidationError{Field: "count", Message: "count must be greater than zero"}
	}

	// When already inside a caller-supplied transaction, reuse it; otherwise
	// open one so the select and update commit together.
	if s.tx != nil {
		return s.reserveIn(ctx, s.tx, bloodType, count)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.NewAdapterError("beginning transaction", err)
	}
	defer tx.Rollback()

	ids, err := s.reserveIn(ctx, tx, bloodType, count)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, models.NewAdapterError("committing reservation", err)
	}
	return ids, nil
}

func (s *BloodUnitStore) reserveIn(ctx context.Context, tx *sql.Tx, bloodType models.BloodType, count int) ([]string, error) {
	// Oldest collection first (FIFO) to minimize wastage from expiry.
	selectQuery := `
		SELECT id
		FROM blood_units
		WHERE blood_type = $1 AND status = 'Available'
		ORDER BY collection_date ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, selectQuery, string(bloodType), count)
	if err != nil {
		return nil, models.NewAdapterError("selecting available units", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, models.NewAdapterError("scanning unit id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, models.NewAdapterError("selecting available units", err)
	}
	rows.Close()

	if len(ids) < count {
		return nil, models.ErrInsufficientStock
	}

	updateQuery := `UPDATE blood_units SET status = 'Reserved', updated_at = $2 WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, updateQuery, pq.Array(ids), time.Now().UTC()); err != nil {
		return nil, models.NewAdapterError("reserving units", err)
	}

	if s.logger != nil {
		s.logger.Debug("reserved blood units", "blood_type", string(bloodType), "count", count)
	}
	return ids, nil
}

// SetStatus sets the status of the given units.
func (s *BloodUnitStore) SetStatus(ctx context.Context, ids []string, status models.UnitStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE blood_units SET status = $2, updated_at = $3 WHERE id = ANY($1)`

	_, err := s.conn().ExecContext(ctx, query, pq.Array(ids), string(status), time.Now().UTC())
	if err != nil {
		return models.NewAdapterError("updating unit status", err)
	}
	return nil
}

// ExpireBefore marks Available units with an expiry date before cutoff as
// Expired. Only Available units are touched, which keeps the sweep idempotent.
func (s *BloodUnitStore) ExpireBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE blood_units
		SET status = 'Expired', updated_at = $2
		WHERE status = 'Available' AND expiry_date < $1`

	res, err := s.conn().ExecContext(ctx, query, cutoff.UTC(), time.Now().UTC())
	if err != nil {
		return 0, models.NewAdapterError("expiring units", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, models.NewAdapterError("expiring units", err)
	}
	return int(n), nil
}

// Update updates a unit's descriptive fields.
func (s *BloodUnitStore) Update(ctx context.Context, unit *models.BloodUnit) error {
	query := `
		UPDATE blood_units
		SET blood_type = $2, collection_date = $3, expiry_date = $4, location = $5, updated_at = $6
		WHERE id = $1`

	unit.UpdatedAt = time.Now().UTC()
	res, err := s.conn().ExecContext(ctx, query,
		unit.ID,
		string(unit.BloodType),
		unit.CollectionDate.UTC(),
		unit.ExpiryDate.UTC(),
		nullString(unit.Location),
		unit.UpdatedAt,
	)
	if err != nil {
		return models.NewAdapterError("updating blood unit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a unit from inventory.
func (s *BloodUnitStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM blood_units WHERE id = $1`, id)
	if err != nil {
		return models.NewAdapterError("deleting blood unit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *BloodUnitStore) listQuery(ctx context.Context, query string, args ...any) ([]*models.BloodUnit, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewAdapterError("listing blood units", err)
	}
	defer rows.Close()

	var units []*models.BloodUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, models.NewAdapterError("scanning blood unit", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewAdapterError("listing blood units", err)
	}
	return units, nil
}

func scanUnit(row rowScanner) (*models.BloodUnit, error) {
	var unit models.BloodUnit
	var bloodType, status string
	var location sql.NullString

	err := row.Scan(
		&unit.ID,
		&unit.BagID,
		&bloodType,
		&unit.CollectionDate,
		&unit.ExpiryDate,
		&location,
		&status,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	unit.BloodType = models.BloodType(bloodType)
	unit.Location = location.String
	unit.Status = models.UnitStatus(status)
	return &unit, nil
}
