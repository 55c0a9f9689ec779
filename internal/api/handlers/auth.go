package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeevandhara/bloodbank/internal/auth"
	"github.com/jeevandhara/bloodbank/internal/geo"
	"github.com/jeevandhara/bloodbank/internal/metrics"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/privacy"
)

// AuthHandler handles signup and login.
type AuthHandler struct {
	authService *auth.Service
	codec       *privacy.Codec
	geocoder    *geo.Client
	collector   *metrics.Collector
	logger      *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(authSvc *auth.Service, codec *privacy.Codec, geocoder *geo.Client, collector *metrics.Collector, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
		codec:       codec,
		geocoder:    geocoder,
		collector:   collector,
		logger:      logger,
	}
}

type signupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	BloodType string `json:"blood_type"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type signupResponse struct {
	Msg      string        `json:"msg"`
	Donor    *models.Donor `json:"donor"`
	Location *geo.Location `json:"location,omitempty"`
}

// Signup registers a new donor account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	// geocoding is enrichment only; a failure never blocks registration
	var location *geo.Location
	if h.geocoder != nil && req.Address != "" {
		loc, err := h.geocoder.Geocode(r.Context(), req.Address)
		if err != nil {
			h.logger.Warn("geocoding failed", "error", err)
		} else {
			location = loc
		}
	}

	phone, err := h.codec.Encrypt(req.Phone)
	if err != nil {
		h.logger.Error("failed to encrypt phone", "error", err)
		WriteInternalError(w, "An unexpected error occurred")
		return
	}
	address, err := h.codec.Encrypt(req.Address)
	if err != nil {
		h.logger.Error("failed to encrypt address", "error", err)
		WriteInternalError(w, "An unexpected error occurred")
		return
	}

	donor, err := h.authService.Signup(r.Context(), auth.SignupParams{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BloodType: models.BloodType(req.BloodType),
		Phone:     phone,
		Address:   address,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			WriteConflict(w, "Email already registered")
			return
		}
		WriteDomainError(w, err)
		return
	}

	h.collector.RecordDonorRegistered()

	// echo the contact details back in plaintext, not in stored form
	donor.Phone = req.Phone
	donor.Address = req.Address
	WriteJSON(w, http.StatusCreated, &signupResponse{
		Msg:      "User registered successfully",
		Donor:    donor,
		Location: location,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	Name      string `json:"name"`
	BloodType string `json:"blood_type"`
	Role      string `json:"role"`
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "email and password required")
		return
	}

	donor, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteUnauthorized(w, "Invalid email or password")
			return
		}
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, &loginResponse{
		Token: token,
		User: loginUser{
			Name:      donor.Name,
			BloodType: donor.BloodType.String(),
			Role:      donor.Role.String(),
		},
	})
}
