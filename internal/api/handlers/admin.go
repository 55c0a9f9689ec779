package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeevandhara/bloodbank/internal/donation"
	"github.com/jeevandhara/bloodbank/internal/fulfillment"
	"github.com/jeevandhara/bloodbank/internal/inventory"
	"github.com/jeevandhara/bloodbank/internal/metrics"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/notify"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// AdminHandler serves the administrative endpoints.
type AdminHandler struct {
	store        store.Store
	ledger       *inventory.Ledger
	fulfillments *fulfillment.Service
	donations    *donation.Service
	mailer       *notify.Mailer
	alerts       *notify.Hub
	collector    *metrics.Collector
	logger       *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(
	st store.Store,
	ledger *inventory.Ledger,
	fulfillments *fulfillment.Service,
	donations *donation.Service,
	mailer *notify.Mailer,
	alerts *notify.Hub,
	collector *metrics.Collector,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		store:        st,
		ledger:       ledger,
		fulfillments: fulfillments,
		donations:    donations,
		mailer:       mailer,
		alerts:       alerts,
		collector:    collector,
		logger:       logger,
	}
}

type addUnitRequest struct {
	BagID          string    `json:"bag_id"`
	BloodType      string    `json:"blood_type"`
	CollectionDate time.Time `json:"collection_date"`
	Location       string    `json:"location"`
}

// AddUnit admits a new blood unit into inventory.
func (h *AdminHandler) AddUnit(w http.ResponseWriter, r *http.Request) {
	var req addUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	unit, err := h.ledger.AddUnit(r.Context(), inventory.AddUnitParams{
		BagID:          req.BagID,
		BloodType:      models.BloodType(req.BloodType),
		CollectionDate: req.CollectionDate,
		Location:       req.Location,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordUnitAdmitted()
	WriteJSON(w, http.StatusCreated, unit)
}

// ListUnits returns inventory units, optionally filtered.
func (h *AdminHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	filter := store.UnitFilter{
		BloodType: models.BloodType(r.URL.Query().Get("blood_type")),
		Location:  r.URL.Query().Get("location"),
		Status:    models.UnitStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		WriteBadRequest(w, "unknown unit status")
		return
	}

	units, err := h.ledger.ListUnits(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, units)
}

type updateUnitRequest struct {
	Location   *string    `json:"location"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// UpdateUnit adjusts a unit's descriptive fields.
func (h *AdminHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	var req updateUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	unit, err := h.ledger.UpdateUnit(r.Context(), chi.URLParam(r, "unitID"), inventory.UpdateUnitParams{
		Location:   req.Location,
		ExpiryDate: req.ExpiryDate,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, unit)
}

// DeleteUnit removes a unit from inventory.
func (h *AdminHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.RemoveUnit(r.Context(), chi.URLParam(r, "unitID")); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"msg": "Unit removed"})
}

type decideRequest struct {
	Action string `json:"action"`
}

// DecideRequest approves or rejects a pending blood request.
func (h *AdminHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		WriteBadRequest(w, "action must be approve or reject")
		return
	}

	decided, err := h.fulfillments.Decide(r.Context(), chi.URLParam(r, "requestID"), req.Action == "approve")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordRequest(decided.Status)
	WriteJSON(w, http.StatusOK, decided)
}

// FulfillRequest consumes stock for an approved request.
func (h *AdminHandler) FulfillRequest(w http.ResponseWriter, r *http.Request) {
	fulfilled, err := h.fulfillments.Fulfill(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordRequest(fulfilled.Status)
	WriteJSON(w, http.StatusOK, fulfilled)
}

type setAppointmentStatusRequest struct {
	Status string `json:"status"`
}

// SetAppointmentStatus confirms, completes or cancels an appointment.
func (h *AdminHandler) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req setAppointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	appt, err := h.donations.SetStatus(r.Context(), chi.URLParam(r, "appointmentID"), models.AppointmentStatus(req.Status))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordAppointment(appt.Status)
	WriteJSON(w, http.StatusOK, appt)
}

type emergencyAlertRequest struct {
	BloodType string `json:"blood_type"`
	Message   string `json:"message"`
	Location  string `json:"location"`
}

// EmergencyAlert emails matching donors and broadcasts to dashboard clients.
// Delivery is best-effort; the response reports how many donors were
// contacted.
func (h *AdminHandler) EmergencyAlert(w http.ResponseWriter, r *http.Request) {
	var req emergencyAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	bloodType := models.BloodType(req.BloodType)
	if !bloodType.IsValid() {
		WriteBadRequest(w, "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
		return
	}
	if req.Message == "" {
		WriteBadRequest(w, "message is required")
		return
	}

	donors, err := h.store.Donors().ListByBloodType(r.Context(), bloodType)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	subject := "Urgent: " + bloodType.String() + " blood needed"
	for _, donor := range donors {
		h.mailer.SendAsync(donor.Email, subject, req.Message)
	}

	h.alerts.Broadcast(notify.Alert{
		BloodType: bloodType.String(),
		Message:   req.Message,
		Location:  req.Location,
	})
	h.collector.RecordAlertBroadcast()

	WriteJSON(w, http.StatusOK, map[string]any{
		"msg":             "Emergency alert sent",
		"donors_notified": len(donors),
	})
}
