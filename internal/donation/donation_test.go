package donation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/internal/eligibility"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/internal/store/memory"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := memory.NewMemoryStore()
	return NewService(s, logger.Default()), s
}

func createDonor(t *testing.T, s store.Store, lastDonation *time.Time) *models.Donor {
	t.Helper()
	donor := &models.Donor{
		ID:           uuid.New().String(),
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		PasswordHash: "x",
		Role:         models.RoleDonor,
		BloodType:    models.BloodTypeOPos,
		LastDonation: lastDonation,
		Eligible:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Donors().Create(context.Background(), donor))
	return donor
}

func book(t *testing.T, svc *Service, donorID string) *models.Appointment {
	t.Helper()
	appt, err := svc.Book(context.Background(), BookParams{
		DonorID:      donorID,
		Date:         time.Now().UTC().Add(72 * time.Hour),
		Location:     "central clinic",
		HealthyToday: true,
	})
	require.NoError(t, err)
	return appt
}

func TestBookEligibleDonor(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)

	appt := book(t, svc, donor.ID)
	assert.Equal(t, models.AppointmentPending, appt.Status)
	assert.Equal(t, donor.ID, appt.DonorID)
}

func TestBookUnhealthyDonor(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)

	_, err := svc.Book(context.Background(), BookParams{
		DonorID:      donor.ID,
		Date:         time.Now().UTC().Add(72 * time.Hour),
		Location:     "central clinic",
		HealthyToday: false,
	})

	var notEligible *ErrNotEligible
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, eligibility.ReasonNotHealthy, notEligible.Reason)
}

func TestBookRecentDonor(t *testing.T) {
	svc, s := newTestService(t)
	last := time.Now().UTC().Add(-10 * 24 * time.Hour)
	donor := createDonor(t, s, &last)

	_, err := svc.Book(context.Background(), BookParams{
		DonorID:      donor.ID,
		Date:         time.Now().UTC().Add(72 * time.Hour),
		Location:     "central clinic",
		HealthyToday: true,
	})

	var notEligible *ErrNotEligible
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, eligibility.ReasonDonationTooRecent, notEligible.Reason)
}

func TestBookUnknownDonor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Book(context.Background(), BookParams{
		DonorID:      "missing",
		Date:         time.Now().UTC().Add(time.Hour),
		Location:     "central clinic",
		HealthyToday: true,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancelOwnAppointment(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	got, err := svc.Cancel(context.Background(), donor.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, got.Status)
}

func TestCancelForeignAppointmentHidden(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	_, err := svc.Cancel(context.Background(), "someone-else", appt.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancelCompletedRefused(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	_, err := svc.SetStatus(context.Background(), appt.ID, models.AppointmentCompleted)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), donor.ID, appt.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSetStatusForwardOnly(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	_, err := svc.SetStatus(context.Background(), appt.ID, models.AppointmentConfirmed)
	require.NoError(t, err)

	// Confirmed back to Pending is not allowed
	_, err = svc.SetStatus(context.Background(), appt.ID, models.AppointmentPending)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCompleteRecordsDonation(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	got, err := svc.SetStatus(context.Background(), appt.ID, models.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, got.Status)

	updated, err := s.Donors().GetByID(context.Background(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.TotalDonations)
	require.NotNil(t, updated.LastDonation)
	assert.WithinDuration(t, appt.Date, *updated.LastDonation, time.Second)
}

func TestCompleteTwiceRefused(t *testing.T) {
	svc, s := newTestService(t)
	donor := createDonor(t, s, nil)
	appt := book(t, svc, donor.ID)

	_, err := svc.SetStatus(context.Background(), appt.ID, models.AppointmentCompleted)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, models.AppointmentCompleted)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	updated, err := s.Donors().GetByID(context.Background(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.TotalDonations, "double completion must not double count")
}
