// Package donation manages donation appointments from booking through
// completion.
package donation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeevandhara/bloodbank/internal/eligibility"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// ErrNotEligible is returned when a donor fails the eligibility check at
// booking time.
type ErrNotEligible struct {
	Reason string
}

func (e *ErrNotEligible) Error() string {
	return fmt.Sprintf("donor not eligible: %s", e.Reason)
}

// Service coordinates appointment booking and lifecycle.
type Service struct {
	store store.Store
	log   *logger.Logger
}

// NewService creates a donation service.
func NewService(s store.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		store: s,
		log:   log.WithComponent("donation"),
	}
}

// BookParams describes an appointment booking.
type BookParams struct {
	DonorID      string
	Date         time.Time
	Location     string
	HealthyToday bool
}

// Book checks the donor's eligibility and, if eligible, creates a Pending
// appointment. An ineligible donor receives ErrNotEligible carrying the
// reason.
func (s *Service) Book(ctx context.Context, params BookParams) (*models.Appointment, error) {
	donor, err := s.store.Donors().GetByID(ctx, params.DonorID)
	if err != nil {
		return nil, err
	}

	result := eligibility.Evaluate(donor, params.HealthyToday, time.Now().UTC())
	if !result.Eligible {
		return nil, &ErrNotEligible{Reason: result.Reason}
	}

	if params.Date.IsZero() {
		return nil, &models.ValidationError{Field: "date", Message: "appointment date is required"}
	}
	if params.Location == "" {
		return nil, &models.ValidationError{Field: "location", Message: "location is required"}
	}

	appt := &models.Appointment{
		ID:        uuid.New().String(),
		DonorID:   donor.ID,
		Date:      params.Date,
		Location:  params.Location,
		Status:    models.AppointmentPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Appointments().Create(ctx, appt); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("appointment booked",
		"appointment_id", appt.ID,
		"donor_id", donor.ID,
		"date", appt.Date)

	return appt, nil
}

// Get retrieves an appointment.
func (s *Service) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return s.store.Appointments().Get(ctx, id)
}

// ListByDonor retrieves a donor's appointments, newest first.
func (s *Service) ListByDonor(ctx context.Context, donorID string) ([]*models.Appointment, error) {
	return s.store.Appointments().ListByDonor(ctx, donorID)
}

// ListUpcoming retrieves non-terminal appointments in the window.
func (s *Service) ListUpcoming(ctx context.Context, from, to time.Time) ([]*models.Appointment, error) {
	return s.store.Appointments().ListUpcoming(ctx, from, to)
}

// Cancel cancels the donor's own appointment. Completed and Cancelled
// appointments cannot be cancelled; a foreign appointment is reported as not
// found rather than revealing its existence.
func (s *Service) Cancel(ctx context.Context, donorID, appointmentID string) (*models.Appointment, error) {
	appt, err := s.store.Appointments().Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DonorID != donorID {
		return nil, models.ErrNotFound
	}
	return s.transition(ctx, appt, models.AppointmentCancelled)
}

// SetStatus moves an appointment to the given status, enforcing the status
// machine. Completing an appointment also records the donation on the donor:
// both writes happen in one transaction.
func (s *Service) SetStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Message: "unknown appointment status"}
	}

	appt, err := s.store.Appointments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, status)
}

func (s *Service) transition(ctx context.Context, appt *models.Appointment, to models.AppointmentStatus) (*models.Appointment, error) {
	if !appt.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("appointment %s is %s: %w", appt.ID, appt.Status, models.ErrInvalidTransition)
	}

	if to == models.AppointmentCompleted {
		err := s.store.WithTx(ctx, func(tx store.Store) error {
			if err := tx.Appointments().SetStatus(ctx, appt.ID, to); err != nil {
				return err
			}
			return tx.Donors().RecordDonation(ctx, appt.DonorID, appt.Date)
		})
		if err != nil {
			return nil, err
		}
		s.log.WithContext(ctx).Info("donation recorded",
			"appointment_id", appt.ID,
			"donor_id", appt.DonorID)
	} else {
		if err := s.store.Appointments().SetStatus(ctx, appt.ID, to); err != nil {
			return nil, err
		}
	}

	appt.Status = to
	return appt, nil
}
