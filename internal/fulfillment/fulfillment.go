// Package fulfillment implements the hospital blood request workflow:
// submission, admin review, and fulfillment against inventory.
package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeevandhara/bloodbank/internal/inventory"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// Service coordinates blood request lifecycle and fulfillment.
type Service struct {
	store  store.Store
	ledger *inventory.Ledger
	log    *logger.Logger

	// fulfillMu serializes Fulfill so the status check and the stock
	// movement form one critical section. Without it, two fulfills of the
	// same request both pass the Approved check, and the one losing the
	// final status transition has already consumed units that can never
	// return to stock.
	fulfillMu sync.Mutex
}

// NewService creates a fulfillment service.
func NewService(s store.Store, ledger *inventory.Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		store:  s,
		ledger: ledger,
		log:    log.WithComponent("fulfillment"),
	}
}

// SubmitParams describes an incoming hospital request.
type SubmitParams struct {
	HospitalName string
	BloodType    models.BloodType
	Units        int
	Urgency      models.Urgency
}

// Submit records a new blood request in Pending status.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*models.BloodRequest, error) {
	if params.Urgency == "" {
		params.Urgency = models.UrgencyNormal
	}

	now := time.Now().UTC()
	req := &models.BloodRequest{
		ID:           uuid.New().String(),
		HospitalName: params.HospitalName,
		BloodType:    params.BloodType,
		Units:        params.Units,
		Urgency:      params.Urgency,
		Status:       models.RequestPending,
		RequestedAt:  now,
		UpdatedAt:    now,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.BloodRequests().Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("request submitted",
		"request_id", req.ID,
		"hospital", req.HospitalName,
		"blood_type", req.BloodType.String(),
		"units", req.Units,
		"urgency", req.Urgency.String())

	return req, nil
}

// Decide moves a Pending request to Approved or Rejected. Any other target
// status is refused. Deciding a request that is no longer Pending returns
// models.ErrInvalidTransition.
func (s *Service) Decide(ctx context.Context, id string, approve bool) (*models.BloodRequest, error) {
	to := models.RequestRejected
	if approve {
		to = models.RequestApproved
	}

	if err := s.store.BloodRequests().TransitionStatus(ctx, id, models.RequestPending, to); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("request decided", "request_id", id, "status", to.String())
	return s.store.BloodRequests().Get(ctx, id)
}

// Fulfill consumes inventory for an Approved request and marks it Fulfilled.
// The flow is reserve, consume, transition; each step only proceeds if the
// previous one succeeded. If the stock cannot cover the request,
// models.ErrInsufficientStock is returned and the request stays Approved. If
// consumption or the final transition fails, the reserved units are released
// back to Available before the error is returned. Fulfills run one at a
// time; a concurrent fulfill of the same request observes the winner's
// status and is refused before touching stock.
func (s *Service) Fulfill(ctx context.Context, id string) (*models.BloodRequest, error) {
	s.fulfillMu.Lock()
	defer s.fulfillMu.Unlock()

	req, err := s.store.BloodRequests().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestApproved {
		return nil, models.ErrInvalidTransition
	}

	unitIDs, err := s.ledger.ReserveUnits(ctx, req.BloodType, req.Units)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.ConsumeUnits(ctx, unitIDs); err != nil {
		s.release(ctx, id, unitIDs)
		return nil, err
	}

	if err := s.store.BloodRequests().TransitionStatus(ctx, id, models.RequestApproved, models.RequestFulfilled); err != nil {
		// Units are already Used at this point. They cannot be returned to
		// stock, so surface the error without touching them.
		return nil, err
	}

	s.log.WithContext(ctx).Info("request fulfilled",
		"request_id", id,
		"blood_type", req.BloodType.String(),
		"units", len(unitIDs))

	return s.store.BloodRequests().Get(ctx, id)
}

func (s *Service) release(ctx context.Context, requestID string, unitIDs []string) {
	if err := s.ledger.ReleaseUnits(ctx, unitIDs); err != nil {
		s.log.WithError(err).Error("failed to release units after fulfillment failure",
			"request_id", requestID)
	}
}

// Get retrieves a request by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.BloodRequest, error) {
	return s.store.BloodRequests().Get(ctx, id)
}

// List retrieves requests matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter store.RequestFilter) ([]*models.BloodRequest, error) {
	return s.store.BloodRequests().List(ctx, filter)
}
