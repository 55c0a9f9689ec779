package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// DonorStore implements store.DonorStore using PostgreSQL.
type DonorStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *DonorStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const donorColumns = `id, name, email, password_hash, role, blood_type, phone, address,
	last_donation, total_donations, eligible, created_at, updated_at`

// Create creates a new donor. Email uniqueness is enforced by the database.
func (s *DonorStore) Create(ctx context.Context, donor *models.Donor) error {
	query := `
		INSERT INTO donors (id, name, email, password_hash, role, blood_type, phone, address,
			last_donation, total_donations, eligible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, query,
		donor.ID,
		donor.Name,
		donor.Email,
		donor.PasswordHash,
		string(donor.Role),
		string(donor.BloodType),
		nullString(donor.Phone),
		nullString(donor.Address),
		donor.LastDonation,
		donor.TotalDonations,
		donor.Eligible,
		donor.CreatedAt,
		donor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return models.NewAdapterError("inserting donor", err)
	}
	return nil
}

// GetByID retrieves a donor by ID.
func (s *DonorStore) GetByID(ctx context.Context, id string) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	return s.scanOne(s.conn().QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a donor by normalized email.
func (s *DonorStore) GetByEmail(ctx context.Context, email string) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE email = $1`
	return s.scanOne(s.conn().QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

// Update updates a donor's mutable profile fields.
func (s *DonorStore) Update(ctx context.Context, donor *models.Donor) error {
	query := `
		UPDATE donors
		SET name = $2, blood_type = $3, phone = $4, address = $5, eligible = $6, updated_at = $7
		WHERE id = $1`

	donor.UpdatedAt = time.Now().UTC()
	res, err := s.conn().ExecContext(ctx, query,
		donor.ID,
		donor.Name,
		string(donor.BloodType),
		nullString(donor.Phone),
		nullString(donor.Address),
		donor.Eligible,
		donor.UpdatedAt,
	)
	if err != nil {
		return models.NewAdapterError("updating donor", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordDonation increments the donor's total and stamps the last donation
// time. The counter never moves backwards.
func (s *DonorStore) RecordDonation(ctx context.Context, donorID string, at time.Time) error {
	query := `
		UPDATE donors
		SET total_donations = total_donations + 1, last_donation = $2, updated_at = $3
		WHERE id = $1`

	res, err := s.conn().ExecContext(ctx, query, donorID, at.UTC(), time.Now().UTC())
	if err != nil {
		return models.NewAdapterError("recording donation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByBloodType retrieves donors with the given blood type.
func (s *DonorStore) ListByBloodType(ctx context.Context, bloodType models.BloodType) ([]*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE blood_type = $1 ORDER BY created_at`

	rows, err := s.conn().QueryContext(ctx, query, string(bloodType))
	if err != nil {
		return nil, models.NewAdapterError("listing donors", err)
	}
	defer rows.Close()

	var donors []*models.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, models.NewAdapterError("scanning donor", err)
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewAdapterError("listing donors", err)
	}
	return donors, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *DonorStore) scanOne(row *sql.Row) (*models.Donor, error) {
	donor, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.NewAdapterError("scanning donor", err)
	}
	return donor, nil
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var donor models.Donor
	var role, bloodType string
	var phone, address sql.NullString
	var lastDonation sql.NullTime

	err := row.Scan(
		&donor.ID,
		&donor.Name,
		&donor.Email,
		&donor.PasswordHash,
		&role,
		&bloodType,
		&phone,
		&address,
		&lastDonation,
		&donor.TotalDonations,
		&donor.Eligible,
		&donor.CreatedAt,
		&donor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	donor.Role = models.Role(role)
	donor.BloodType = models.BloodType(bloodType)
	donor.Phone = phone.String
	donor.Address = address.String
	if lastDonation.Valid {
		t := lastDonation.Time
		donor.LastDonation = &t
	}
	return &donor, nil
}

// nullString converts an empty string into a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
