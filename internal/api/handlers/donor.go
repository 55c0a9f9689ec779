package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeevandhara/bloodbank/internal/api/middleware"
	"github.com/jeevandhara/bloodbank/internal/donation"
	"github.com/jeevandhara/bloodbank/internal/eligibility"
	"github.com/jeevandhara/bloodbank/internal/metrics"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/privacy"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// DonorHandler serves the donor-facing endpoints.
type DonorHandler struct {
	store     store.Store
	donations *donation.Service
	codec     *privacy.Codec
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewDonorHandler creates a donor handler.
func NewDonorHandler(st store.Store, donations *donation.Service, codec *privacy.Codec, collector *metrics.Collector, logger *slog.Logger) *DonorHandler {
	return &DonorHandler{
		store:     st,
		donations: donations,
		codec:     codec,
		collector: collector,
		logger:    logger,
	}
}

// GetProfile returns the authenticated donor's profile with contact details
// decrypted.
func (h *DonorHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	donor, err := h.store.Donors().GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := h.decryptContact(donor); err != nil {
		h.logger.Error("failed to decrypt contact details", "error", err, "donor_id", donor.ID)
		WriteInternalError(w, "An unexpected error occurred")
		return
	}

	WriteJSON(w, http.StatusOK, donor)
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	BloodType *string `json:"blood_type"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

// UpdateProfile updates the donor's mutable profile fields.
func (h *DonorHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()
	donor, err := h.store.Donors().GetByID(ctx, middleware.GetUserID(ctx))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if req.Name != nil {
		donor.Name = *req.Name
	}
	if req.BloodType != nil {
		donor.BloodType = models.BloodType(*req.BloodType)
	}
	if req.Phone != nil {
		enc, err := h.codec.Encrypt(*req.Phone)
		if err != nil {
			h.logger.Error("failed to encrypt phone", "error", err)
			WriteInternalError(w, "An unexpected error occurred")
			return
		}
		donor.Phone = enc
	}
	if req.Address != nil {
		enc, err := h.codec.Encrypt(*req.Address)
		if err != nil {
			h.logger.Error("failed to encrypt address", "error", err)
			WriteInternalError(w, "An unexpected error occurred")
			return
		}
		donor.Address = enc
	}

	if err := donor.Validate(); err != nil {
		WriteDomainError(w, err)
		return
	}
	if err := h.store.Donors().Update(ctx, donor); err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := h.decryptContact(donor); err != nil {
		h.logger.Error("failed to decrypt contact details", "error", err, "donor_id", donor.ID)
		WriteInternalError(w, "An unexpected error occurred")
		return
	}
	WriteJSON(w, http.StatusOK, donor)
}

type eligibilityRequest struct {
	HealthyToday bool `json:"healthy_today"`
}

type eligibilityResponse struct {
	eligibility.Result
	NextEligibleAt *time.Time `json:"next_eligible_at,omitempty"`
}

// CheckEligibility evaluates the donor's eligibility without booking.
func (h *DonorHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	donor, err := h.store.Donors().GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := eligibilityResponse{
		Result: eligibility.Evaluate(donor, req.HealthyToday, time.Now().UTC()),
	}
	if next := eligibility.NextEligibleAt(donor); !next.IsZero() {
		resp.NextEligibleAt = &next
	}

	WriteJSON(w, http.StatusOK, resp)
}

type bookRequest struct {
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	HealthyToday bool      `json:"healthy_today"`
}

// BookAppointment books a donation appointment.
func (h *DonorHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	appt, err := h.donations.Book(r.Context(), donation.BookParams{
		DonorID:      middleware.GetUserID(r.Context()),
		Date:         req.Date,
		Location:     req.Location,
		HealthyToday: req.HealthyToday,
	})
	if err != nil {
		var notEligible *donation.ErrNotEligible
		if errors.As(err, &notEligible) {
			WriteJSON(w, http.StatusConflict, &APIError{
				Code:    "not_eligible",
				Message: "Donor is not eligible to donate",
				Details: map[string]string{"reason": notEligible.Reason},
			})
			return
		}
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordAppointment(appt.Status)
	WriteJSON(w, http.StatusCreated, appt)
}

// ListAppointments returns the donor's appointments, newest first.
func (h *DonorHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.donations.ListByDonor(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, appts)
}

// CancelAppointment cancels the donor's own appointment.
func (h *DonorHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.donations.Cancel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "appointmentID"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordAppointment(appt.Status)
	WriteJSON(w, http.StatusOK, appt)
}

type historyResponse struct {
	TotalDonations int                   `json:"total_donations"`
	LastDonation   *time.Time            `json:"last_donation,omitempty"`
	Donations      []*models.Appointment `json:"donations"`
}

// History returns the donor's completed donations.
func (h *DonorHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donor, err := h.store.Donors().GetByID(ctx, middleware.GetUserID(ctx))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	appts, err := h.donations.ListByDonor(ctx, donor.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	completed := make([]*models.Appointment, 0)
	for _, appt := range appts {
		if appt.Status == models.AppointmentCompleted {
			completed = append(completed, appt)
		}
	}

	WriteJSON(w, http.StatusOK, &historyResponse{
		TotalDonations: donor.TotalDonations,
		LastDonation:   donor.LastDonation,
		Donations:      completed,
	})
}

func (h *DonorHandler) decryptContact(donor *models.Donor) error {
	phone, err := h.codec.Decrypt(donor.Phone)
	if err != nil {
		return err
	}
	address, err := h.codec.Decrypt(donor.Address)
	if err != nil {
		return err
	}
	donor.Phone = phone
	donor.Address = address
	return nil
}
