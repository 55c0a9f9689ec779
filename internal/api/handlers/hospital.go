package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jeevandhara/bloodbank/internal/fulfillment"
	"github.com/jeevandhara/bloodbank/internal/inventory"
	"github.com/jeevandhara/bloodbank/internal/metrics"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// HospitalHandler serves the hospital-facing endpoints.
type HospitalHandler struct {
	ledger       *inventory.Ledger
	fulfillments *fulfillment.Service
	collector    *metrics.Collector
	logger       *slog.Logger
}

// NewHospitalHandler creates a hospital handler.
func NewHospitalHandler(ledger *inventory.Ledger, fulfillments *fulfillment.Service, collector *metrics.Collector, logger *slog.Logger) *HospitalHandler {
	return &HospitalHandler{
		ledger:       ledger,
		fulfillments: fulfillments,
		collector:    collector,
		logger:       logger,
	}
}

// GetStock returns Available unit counts per blood type. The endpoint is
// public so hospitals can check availability before registering.
func (h *HospitalHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.ledger.QueryStock(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	for _, level := range levels {
		h.collector.SetStockLevel(level.BloodType, level.Available)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"stock": levels})
}

type requestBloodRequest struct {
	HospitalName string `json:"hospital_name"`
	BloodType    string `json:"blood_type"`
	Units        int    `json:"units"`
	Urgency      string `json:"urgency"`
}

// RequestBlood submits a new blood request.
func (h *HospitalHandler) RequestBlood(w http.ResponseWriter, r *http.Request) {
	var req requestBloodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	created, err := h.fulfillments.Submit(r.Context(), fulfillment.SubmitParams{
		HospitalName: req.HospitalName,
		BloodType:    models.BloodType(req.BloodType),
		Units:        req.Units,
		Urgency:      models.Urgency(req.Urgency),
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordRequest(created.Status)
	WriteJSON(w, http.StatusCreated, created)
}

// ListRequests returns blood requests, optionally filtered by status or
// hospital name.
func (h *HospitalHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := store.RequestFilter{
		Status:       models.RequestStatus(r.URL.Query().Get("status")),
		HospitalName: r.URL.Query().Get("hospital_name"),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		WriteBadRequest(w, "unknown request status")
		return
	}

	requests, err := h.fulfillments.List(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, requests)
}
