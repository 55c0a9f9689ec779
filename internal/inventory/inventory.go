// Package inventory manages the blood unit ledger: admission, reservation,
// consumption, release and expiry of units.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// Ledger coordinates all state changes to the blood unit inventory.
type Ledger struct {
	store     store.Store
	shelfLife time.Duration
	log       *logger.Logger
}

// NewLedger creates an inventory ledger. shelfLife determines the expiry
// date derived for units admitted without one.
func NewLedger(s store.Store, shelfLife time.Duration, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Default()
	}
	return &Ledger{
		store:     s,
		shelfLife: shelfLife,
		log:       log.WithComponent("inventory"),
	}
}

// AddUnitParams describes a unit being admitted into inventory.
type AddUnitParams struct {
	BagID          string
	BloodType      models.BloodType
	CollectionDate time.Time
	Location       string
}

// AddUnit admits a new unit. The unit enters as Available with an expiry
// date derived from the collection date and shelf life. Returns
// models.ErrConflict if the bag ID is already registered.
func (l *Ledger) AddUnit(ctx context.Context, params AddUnitParams) (*models.BloodUnit, error) {
	now := time.Now().UTC()
	unit := &models.BloodUnit{
		ID:             uuid.New().String(),
		BagID:          params.BagID,
		BloodType:      params.BloodType,
		CollectionDate: params.CollectionDate,
		ExpiryDate:     models.ExpiryFrom(params.CollectionDate, l.shelfLife),
		Location:       params.Location,
		Status:         models.UnitAvailable,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := unit.Validate(); err != nil {
		return nil, err
	}

	if err := l.store.BloodUnits().Create(ctx, unit); err != nil {
		return nil, err
	}

	l.log.WithContext(ctx).Info("unit admitted",
		"unit_id", unit.ID,
		"bag_id", unit.BagID,
		"blood_type", unit.BloodType.String(),
		"expiry_date", unit.ExpiryDate)

	return unit, nil
}

// ReserveUnits atomically claims count Available units of the given blood
// type, oldest first, and marks them Reserved. Returns the claimed unit IDs.
// If fewer than count units are Available, nothing is reserved and
// models.ErrInsufficientStock is returned.
func (l *Ledger) ReserveUnits(ctx context.Context, bloodType models.BloodType, count int) ([]string, error) {
	if count <= 0 {
		return nil, &models.ValidationError{Field: "units", Message: "unit count must be positive"}
	}
	if !bloodType.IsValid() {
		return nil, &models.ValidationError{Field: "blood_type", Message: "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}

	ids, err := l.store.BloodUnits().ReserveOldestAvailable(ctx, bloodType, count)
	if err != nil {
		return nil, err
	}

	l.log.WithContext(ctx).Info("units reserved",
		"blood_type", bloodType.String(),
		"count", count)

	return ids, nil
}

// ConsumeUnits marks the given Reserved units as Used. If any unit is not
// currently Reserved, nothing changes and models.ErrInvalidState is returned.
func (l *Ledger) ConsumeUnits(ctx context.Context, ids []string) error {
	return l.store.WithTx(ctx, func(tx store.Store) error {
		if err := requireStatus(ctx, tx, ids, models.UnitReserved); err != nil {
			return err
		}
		return tx.BloodUnits().SetStatus(ctx, ids, models.UnitUsed)
	})
}

// ReleaseUnits returns Reserved units to Available. Units already Available
// are left alone, so a release after a partial failure is idempotent. A Used
// or Expired unit in the set aborts with models.ErrInvalidState.
func (l *Ledger) ReleaseUnits(ctx context.Context, ids []string) error {
	return l.store.WithTx(ctx, func(tx store.Store) error {
		units, err := tx.BloodUnits().GetMany(ctx, ids)
		if err != nil {
			return err
		}
		if len(units) != len(ids) {
			return models.ErrNotFound
		}

		var toRelease []string
		for _, u := range units {
			switch u.Status {
			case models.UnitReserved:
				toRelease = append(toRelease, u.ID)
			case models.UnitAvailable:
				// already released, nothing to do
			default:
				return fmt.Errorf("unit %s is %s: %w", u.ID, u.Status, models.ErrInvalidState)
			}
		}

		if len(toRelease) == 0 {
			return nil
		}
		return tx.BloodUnits().SetStatus(ctx, toRelease, models.UnitAvailable)
	})
}

// ExpireStale marks Available units past their expiry date as Expired and
// returns how many changed. Reserved units are never expired while held.
func (l *Ledger) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	n, err := l.store.BloodUnits().ExpireBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.log.Info("units expired", "count", n)
	}
	return n, nil
}

// StockLevel is the Available unit count for one blood type.
type StockLevel struct {
	BloodType models.BloodType `json:"blood_type"`
	Available int              `json:"available"`
}

// QueryStock returns Available unit counts per blood type, optionally
// narrowed by location. Every blood type appears in the result, with zero
// for types that have no stock.
func (l *Ledger) QueryStock(ctx context.Context, location string) ([]StockLevel, error) {
	counts, err := l.store.BloodUnits().CountByType(ctx, store.UnitFilter{
		Location: location,
		Status:   models.UnitAvailable,
	})
	if err != nil {
		return nil, err
	}

	levels := make([]StockLevel, 0, len(models.ValidBloodTypes()))
	for _, bt := range models.ValidBloodTypes() {
		levels = append(levels, StockLevel{BloodType: bt, Available: counts[bt]})
	}
	return levels, nil
}

// ListUnits retrieves units matching the filter.
func (l *Ledger) ListUnits(ctx context.Context, filter store.UnitFilter) ([]*models.BloodUnit, error) {
	return l.store.BloodUnits().List(ctx, filter)
}

// GetUnit retrieves a single unit.
func (l *Ledger) GetUnit(ctx context.Context, id string) (*models.BloodUnit, error) {
	return l.store.BloodUnits().Get(ctx, id)
}

// UpdateUnitParams describes the mutable fields of an existing unit.
type UpdateUnitParams struct {
	Location   *string
	ExpiryDate *time.Time
}

// UpdateUnit adjusts a unit's descriptive fields. Status is never changed
// here; the lifecycle methods own status transitions.
func (l *Ledger) UpdateUnit(ctx context.Context, id string, params UpdateUnitParams) (*models.BloodUnit, error) {
	unit, err := l.store.BloodUnits().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Location != nil {
		unit.Location = *params.Location
	}
	if params.ExpiryDate != nil {
		unit.ExpiryDate = *params.ExpiryDate
	}
	unit.UpdatedAt = time.Now().UTC()

	if err := l.store.BloodUnits().Update(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// RemoveUnit deletes a unit from inventory. Reserved units cannot be removed
// while held.
func (l *Ledger) RemoveUnit(ctx context.Context, id string) error {
	unit, err := l.store.BloodUnits().Get(ctx, id)
	if err != nil {
		return err
	}
	if unit.Status == models.UnitReserved {
		return fmt.Errorf("unit %s is reserved: %w", id, models.ErrInvalidState)
	}
	return l.store.BloodUnits().Delete(ctx, id)
}

func requireStatus(ctx context.Context, tx store.Store, ids []string, want models.UnitStatus) error {
	units, err := tx.BloodUnits().GetMany(ctx, ids)
	if err != nil {
		return err
	}
	if len(units) != len(ids) {
		return models.ErrNotFound
	}
	for _, u := range units {
		if u.Status != want {
			return fmt.Errorf("unit %s is %s, want %s: %w", u.ID, u.Status, want, models.ErrInvalidState)
		}
	}
	return nil
}
