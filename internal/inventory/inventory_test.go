package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/internal/store/memory"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

const testShelfLife = 42 * 24 * time.Hour

func newTestLedger(t *testing.T) (*Ledger, store.Store) {
	t.Helper()
	s := memory.NewMemoryStore()
	return NewLedger(s, testShelfLife, logger.Default()), s
}

func addUnit(t *testing.T, ledger *Ledger, bagID string, bt models.BloodType, collected time.Time) *models.BloodUnit {
	t.Helper()
	unit, err := ledger.AddUnit(context.Background(), AddUnitParams{
		BagID:          bagID,
		BloodType:      bt,
		CollectionDate: collected,
		Location:       "central",
	})
	require.NoError(t, err)
	return unit
}

func TestAddUnitDerivesExpiry(t *testing.T) {
	ledger, _ := newTestLedger(t)
	collected := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	unit := addUnit(t, ledger, "BAG-001", models.BloodTypeOPos, collected)

	assert.Equal(t, models.UnitAvailable, unit.Status)
	assert.Equal(t, collected.Add(testShelfLife), unit.ExpiryDate)
	assert.NotEmpty(t, unit.ID)
}

func TestAddUnitDuplicateBagID(t *testing.T) {
	ledger, _ := newTestLedger(t)
	now := time.Now().UTC()

	addUnit(t, ledger, "BAG-001", models.BloodTypeOPos, now)

	_, err := ledger.AddUnit(context.Background(), AddUnitParams{
		BagID:          "BAG-001",
		BloodType:      models.BloodTypeAPos,
		CollectionDate: now,
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAddUnitInvalidBloodType(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.AddUnit(context.Background(), AddUnitParams{
		BagID:          "BAG-001",
		BloodType:      "X+",
		CollectionDate: time.Now(),
	})

	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReserveUnitsOldestFirst(t *testing.T) {
	ledger, s := newTestLedger(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	newer := addUnit(t, ledger, "BAG-NEW", models.BloodTypeBNeg, base.Add(48*time.Hour))
	oldest := addUnit(t, ledger, "BAG-OLD", models.BloodTypeBNeg, base)
	middle := addUnit(t, ledger, "BAG-MID", models.BloodTypeBNeg, base.Add(24*time.Hour))

	ids, err := ledger.ReserveUnits(context.Background(), models.BloodTypeBNeg, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.ElementsMatch(t, []string{oldest.ID, middle.ID}, ids)

	got, err := s.BloodUnits().Get(context.Background(), newer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, got.Status)
}

func TestReserveUnitsInsufficientStock(t *testing.T) {
	ledger, s := newTestLedger(t)
	now := time.Now().UTC()

	unit := addUnit(t, ledger, "BAG-001", models.BloodTypeABNeg, now)

	_, err := ledger.ReserveUnits(context.Background(), models.BloodTypeABNeg, 2)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	// all-or-nothing: the single unit must still be Available
	got, err := s.BloodUnits().Get(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, got.Status)
}

func TestReserveUnitsIgnoresOtherTypes(t *testing.T) {
	ledger, _ := newTestLedger(t)
	now := time.Now().UTC()

	addUnit(t, ledger, "BAG-A", models.BloodTypeAPos, now)

	_, err := ledger.ReserveUnits(context.Background(), models.BloodTypeONeg, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
}

func TestReserveUnitsConcurrentSingleWinner(t *testing.T) {
	ledger, _ := newTestLedger(t)
	addUnit(t, ledger, "BAG-ONLY", models.BloodTypeONeg, time.Now().UTC())

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = ledger.ReserveUnits(context.Background(), models.BloodTypeONeg, 1)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrInsufficientStock):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one caller should claim the unit")
	assert.Equal(t, 1, losses)
}

func TestConsumeUnits(t *testing.T) {
	ledger, s := newTestLedger(t)
	addUnit(t, ledger, "BAG-001", models.BloodTypeOPos, time.Now().UTC())

	ids, err := ledger.ReserveUnits(context.Background(), models.BloodTypeOPos, 1)
	require.NoError(t, err)

	require.NoError(t, ledger.ConsumeUnits(context.Background(), ids))

	got, err := s.BloodUnits().Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.UnitUsed, got.Status)
}

func TestConsumeUnitsNotReserved(t *testing.T) {
	ledger, _ := newTestLedger(t)
	unit := addUnit(t, ledger, "BAG-001", models.BloodTypeOPos, time.Now().UTC())

	err := ledger.ConsumeUnits(context.Background(), []string{unit.ID})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestReleaseUnits(t *testing.T) {
	ledger, s := newTestLedger(t)
	addUnit(t, ledger, "BAG-001", models.BloodTypeAPos, time.Now().UTC())

	ids, err := ledger.ReserveUnits(context.Background(), models.BloodTypeAPos, 1)
	require.NoError(t, err)

	require.NoError(t, ledger.ReleaseUnits(context.Background(), ids))

	got, err := s.BloodUnits().Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, got.Status)

	// releasing again is a no-op
	require.NoError(t, ledger.ReleaseUnits(context.Background(), ids))
}

func TestReleaseUnitsUsedAborts(t *testing.T) {
	ledger, _ := newTestLedger(t)
	addUnit(t, ledger, "BAG-001", models.BloodTypeAPos, time.Now().UTC())

	ids, err := ledger.ReserveUnits(context.Background(), models.BloodTypeAPos, 1)
	require.NoError(t, err)
	require.NoError(t, ledger.ConsumeUnits(context.Background(), ids))

	err = ledger.ReleaseUnits(context.Background(), ids)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestExpireStale(t *testing.T) {
	ledger, s := newTestLedger(t)
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	fresh := time.Now().UTC()

	expired := addUnit(t, ledger, "BAG-OLD", models.BloodTypeOPos, old)
	kept := addUnit(t, ledger, "BAG-NEW", models.BloodTypeOPos, fresh)

	// reserved units are never expired while held
	addUnit(t, ledger, "BAG-HELD", models.BloodTypeBPos, old)
	heldIDs, err := ledger.ReserveUnits(context.Background(), models.BloodTypeBPos, 1)
	require.NoError(t, err)

	n, err := ledger.ExpireStale(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.BloodUnits().Get(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitExpired, got.Status)

	got, err = s.BloodUnits().Get(context.Background(), kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, got.Status)

	got, err = s.BloodUnits().Get(context.Background(), heldIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.UnitReserved, got.Status)

	// idempotent: a second sweep finds nothing
	n, err = ledger.ExpireStale(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestQueryStockIncludesZeroTypes(t *testing.T) {
	ledger, _ := newTestLedger(t)
	now := time.Now().UTC()

	addUnit(t, ledger, "BAG-1", models.BloodTypeOPos, now)
	addUnit(t, ledger, "BAG-2", models.BloodTypeOPos, now)
	addUnit(t, ledger, "BAG-3", models.BloodTypeANeg, now)

	levels, err := ledger.QueryStock(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, levels, 8)

	byType := make(map[models.BloodType]int)
	for _, lvl := range levels {
		byType[lvl.BloodType] = lvl.Available
	}
	assert.Equal(t, 2, byType[models.BloodTypeOPos])
	assert.Equal(t, 1, byType[models.BloodTypeANeg])
	assert.Equal(t, 0, byType[models.BloodTypeABPos])
}

func TestRemoveUnitReservedRefused(t *testing.T) {
	ledger, _ := newTestLedger(t)
	addUnit(t, ledger, "BAG-001", models.BloodTypeOPos, time.Now().UTC())

	ids, err := ledger.ReserveUnits(context.Background(), models.BloodTypeOPos, 1)
	require.NoError(t, err)

	err = ledger.RemoveUnit(context.Background(), ids[0])
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
