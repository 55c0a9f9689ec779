// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// UnitFilter narrows blood unit queries. Zero values match everything.
type UnitFilter struct {
	BloodType models.BloodType
	Location  string
	Status    models.UnitStatus
}

// RequestFilter narrows blood request queries. Zero values match everything.
type RequestFilter struct {
	Status       models.RequestStatus
	HospitalName string
}

// DonorStore defines operations for donor management.
type DonorStore interface {
	// Create creates a new donor. Returns models.ErrConflict if the
	// normalized email is already registered.
	Create(ctx context.Context, donor *models.Donor) error
	// GetByID retrieves a donor by ID.
	GetByID(ctx context.Context, id string) (*models.Donor, error)
	// GetByEmail retrieves a donor by normalized email.
	GetByEmail(ctx context.Context, email string) (*models.Donor, error)
	// Update updates a donor's mutable profile fields.
	Update(ctx context.Context, donor *models.Donor) error
	// RecordDonation increments the donor's total and stamps the last
	// donation time. The counter only moves forward.
	RecordDonation(ctx context.Context, donorID string, at time.Time) error
	// ListByBloodType retrieves donors with the given blood type.
	ListByBloodType(ctx context.Context, bloodType models.BloodType) ([]*models.Donor, error)
}

// AppointmentStore defines operations for appointment management.
type AppointmentStore interface {
	// Create creates a new appointment.
	Create(ctx context.Context, appt *models.Appointment) error
	// Get retrieves an appointment by ID.
	Get(ctx context.Context, id string) (*models.Appointment, error)
	// ListByDonor retrieves a donor's appointments, newest first.
	ListByDonor(ctx context.Context, donorID string) ([]*models.Appointment, error)
	// ListUpcoming retrieves non-terminal appointments scheduled within the window.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*models.Appointment, error)
	// SetStatus sets an appointment's status. Transition legality is the
	// caller's responsibility.
	SetStatus(ctx context.Context, id string, status models.AppointmentStatus) error
}

// BloodUnitStore defines operations for the blood unit inventory.
type BloodUnitStore interface {
	// Create admits a unit into inventory. Returns models.ErrConflict if the
	// bag ID is already present.
	Create(ctx context.Context, unit *models.BloodUnit) error
	// Get retrieves a unit by ID.
	Get(ctx context.Context, id string) (*models.BloodUnit, error)
	// GetMany retrieves the units with the given IDs.
	GetMany(ctx context.Context, ids []string) ([]*models.BloodUnit, error)
	// List retrieves units matching the filter, oldest collection first.
	List(ctx context.Context, filter UnitFilter) ([]*models.BloodUnit, error)
	// CountByType aggregates Available units per blood type for the filter.
	CountByType(ctx context.Context, filter UnitFilter) (map[models.BloodType]int, error)
	// ReserveOldestAvailable atomically claims count Available units of the
	// given type, oldest collection date first, and marks them Reserved.
	// Returns models.ErrInsufficientStock (and touches nothing) if fewer than
	// count are Available. Two concurrent callers never claim the same unit.
	ReserveOldestAvailable(ctx context.Context, bloodType models.BloodType, count int) ([]string, error)
	// SetStatus sets the status of the given units. Transition legality is
	// the caller's responsibility.
	SetStatus(ctx context.Context, ids []string, status models.UnitStatus) error
	// ExpireBefore marks Available units with an expiry date before cutoff as
	// Expired and returns how many changed.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int, error)
	// Update updates a unit's descriptive fields (location, expiry).
	Update(ctx context.Context, unit *models.BloodUnit) error
	// Delete removes a unit. Returns models.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// BloodRequestStore defines operations for hospital blood requests.
type BloodRequestStore interface {
	// Create creates a new blood request.
	Create(ctx context.Context, req *models.BloodRequest) error
	// Get retrieves a request by ID.
	Get(ctx context.Context, id string) (*models.BloodRequest, error)
	// List retrieves requests matching the filter, newest first.
	List(ctx context.Context, filter RequestFilter) ([]*models.BloodRequest, error)
	// TransitionStatus moves a request from one status to another as a single
	// conditional update. Returns models.ErrInvalidTransition if the request
	// is not currently in from.
	TransitionStatus(ctx context.Context, id string, from, to models.RequestStatus) error
}

// Store is the main interface for database operations.
type Store interface {
	// Donors returns the DonorStore for donor operations.
	Donors() DonorStore
	// Appointments returns the AppointmentStore for appointment operations.
	Appointments() AppointmentStore
	// BloodUnits returns the BloodUnitStore for inventory operations.
	BloodUnits() BloodUnitStore
	// BloodRequests returns the BloodRequestStore for request operations.
	BloodRequests() BloodRequestStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
