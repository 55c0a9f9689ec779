// Package main provides the background worker: inventory expiry sweeps and
// appointment reminder mail.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/jeevandhara/bloodbank/internal/inventory"
	"github.com/jeevandhara/bloodbank/internal/notify"
	"github.com/jeevandhara/bloodbank/internal/store"
	pgstore "github.com/jeevandhara/bloodbank/internal/store/postgres"
	"github.com/jeevandhara/bloodbank/pkg/config"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ledger := inventory.NewLedger(st, cfg.Inventory.ShelfLife, log)
	mailer := notify.NewMailer(notify.MailConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runExpirySweep(ctx, ledger, cfg.Worker.SweepInterval, log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runReminders(ctx, st, mailer, cfg.Worker.ReminderLead, log)
	}()

	log.Info("worker started",
		"sweep_interval", cfg.Worker.SweepInterval.String(),
		"reminder_lead", cfg.Worker.ReminderLead.String())

	wg.Wait()
	log.Info("worker stopped")
}

// runExpirySweep periodically marks Available units past their expiry date
// as Expired.
func runExpirySweep(ctx context.Context, ledger *inventory.Ledger, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		n, err := ledger.ExpireStale(ctx, time.Now().UTC())
		if err != nil {
			log.WithError(err).Error("expiry sweep failed")
			return
		}
		if n > 0 {
			log.Info("expiry sweep completed", "expired", n)
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// runReminders mails donors whose appointment falls inside the lead window.
// Sent appointment IDs are remembered in memory so a donor is reminded once
// per worker run.
func runReminders(ctx context.Context, st store.Store, mailer *notify.Mailer, lead time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	sent := make(map[string]struct{})

	remind := func() {
		now := time.Now().UTC()
		appts, err := st.Appointments().ListUpcoming(ctx, now, now.Add(lead))
		if err != nil {
			log.WithError(err).Error("listing upcoming appointments failed")
			return
		}

		for _, appt := range appts {
			if _, done := sent[appt.ID]; done {
				continue
			}

			donor, err := st.Donors().GetByID(ctx, appt.DonorID)
			if err != nil {
				log.WithError(err).Error("loading donor for reminder failed", "appointment_id", appt.ID)
				continue
			}

			body := "Hi " + donor.Name + ",\n\nThis is a reminder of your blood donation appointment at " +
				appt.Location + " on " + appt.Date.Format(time.RFC1123) + ".\n\nThank you for donating!"
			if err := mailer.Send(donor.Email, "Appointment reminder", body); err != nil {
				log.WithError(err).Error("reminder mail failed", "appointment_id", appt.ID)
				continue
			}
			sent[appt.ID] = struct{}{}
		}
	}

	remind()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remind()
		}
	}
}
