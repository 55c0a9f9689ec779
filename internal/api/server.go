// Package api provides the HTTP API server for the blood bank.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeevandhara/bloodbank/internal/api/handlers"
	"github.com/jeevandhara/bloodbank/internal/api/health"
	"github.com/jeevandhara/bloodbank/internal/api/middleware"
	"github.com/jeevandhara/bloodbank/internal/auth"
	"github.com/jeevandhara/bloodbank/internal/donation"
	"github.com/jeevandhara/bloodbank/internal/faq"
	"github.com/jeevandhara/bloodbank/internal/fulfillment"
	"github.com/jeevandhara/bloodbank/internal/geo"
	"github.com/jeevandhara/bloodbank/internal/inventory"
	"github.com/jeevandhara/bloodbank/internal/metrics"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/notify"
	"github.com/jeevandhara/bloodbank/internal/privacy"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	authLimiter   *middleware.RateLimiter
	store         store.Store
	auth          *auth.Service
	ledger        *inventory.Ledger
	fulfillments  *fulfillment.Service
	donations     *donation.Service
	codec         *privacy.Codec
	mailer        *notify.Mailer
	alerts        *notify.Hub
	responder     *faq.Responder
	geocoder      *geo.Client
	collector     *metrics.Collector
	registry      *prometheus.Registry
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	codec, err := privacy.NewCodec(&privacy.Config{
		PublicKey:  cfg.Privacy.AgePublicKey,
		PrivateKey: cfg.Privacy.AgePrivateKey,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing privacy codec: %w", err)
	}

	responder, err := faq.LoadResponder(cfg.FAQRulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading faq rules: %w", err)
	}

	ledger := inventory.NewLedger(st, cfg.Inventory.ShelfLife, nil)

	s := &Server{
		store:        st,
		auth:         auth.NewService(&auth.Config{JWTSecret: []byte(cfg.JWTSecret), TokenExpiry: cfg.JWTExpiry}, st, nil),
		ledger:       ledger,
		fulfillments: fulfillment.NewService(st, ledger, nil),
		donations:    donation.NewService(st, nil),
		codec:        codec,
		mailer: notify.NewMailer(notify.MailConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, nil),
		alerts:    notify.NewHub(nil),
		responder: responder,
		geocoder:  geo.NewClient(cfg.NominatimURL, nil),
		collector: collector,
		registry:  registry,
		config:    cfg,
		logger:    logger,
	}

	s.healthChecker = health.NewChecker(st, Version)
	s.setupRouter()
	return s, nil
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Metrics(s.collector))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Public endpoints
	r.Get("/health", s.healthChecker.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.registry))

	faqHandler := handlers.NewFAQHandler(s.responder)
	r.Get("/faq", faqHandler.Ask)

	hospitalHandler := handlers.NewHospitalHandler(s.ledger, s.fulfillments, s.collector, s.logger)
	r.Get("/hospital/blood-stock", hospitalHandler.GetStock)

	// Alerts websocket (public, read-only)
	r.Get("/alerts/ws", s.alerts.ServeHTTP)

	// Auth routes, rate limited per client IP
	authHandler := handlers.NewAuthHandler(s.auth, s.codec, s.geocoder, s.collector, s.logger)
	s.authLimiter = middleware.NewRateLimiter(1, 5)
	r.Route("/auth", func(r chi.Router) {
		r.Use(s.authLimiter.Limit)
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)

	// Donor routes
	donorHandler := handlers.NewDonorHandler(s.store, s.donations, s.codec, s.collector, s.logger)
	r.Route("/donor", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(middleware.RequireRole(models.RoleDonor, models.RoleAdmin))
		r.Get("/profile", donorHandler.GetProfile)
		r.Put("/profile", donorHandler.UpdateProfile)
		r.Post("/check-eligibility", donorHandler.CheckEligibility)
		r.Post("/book-appointment", donorHandler.BookAppointment)
		r.Get("/appointments", donorHandler.ListAppointments)
		r.Post("/appointments/{appointmentID}/cancel", donorHandler.CancelAppointment)
		r.Get("/history", donorHandler.History)
	})

	// Hospital routes
	r.Route("/hospital", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(middleware.RequireRole(models.RoleHospital, models.RoleAdmin))
		r.Post("/request-blood", hospitalHandler.RequestBlood)
		r.Get("/requests", hospitalHandler.ListRequests)
	})

	// Admin routes
	adminHandler := handlers.NewAdminHandler(s.store, s.ledger, s.fulfillments, s.donations, s.mailer, s.alerts, s.collector, s.logger)
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Post("/blood-units", adminHandler.AddUnit)
		r.Get("/blood-units", adminHandler.ListUnits)
		r.Put("/blood-units/{unitID}", adminHandler.UpdateUnit)
		r.Delete("/blood-units/{unitID}", adminHandler.DeleteUnit)
		r.Get("/requests", hospitalHandler.ListRequests)
		r.Put("/requests/{requestID}", adminHandler.DecideRequest)
		r.Post("/requests/{requestID}/fulfill", adminHandler.FulfillRequest)
		r.Post("/appointments/{appointmentID}/status", adminHandler.SetAppointmentStatus)
		r.Post("/emergency-alert", adminHandler.EmergencyAlert)
	})

	s.router = r
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr, "version", Version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and its background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.authLimiter != nil {
		s.authLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
