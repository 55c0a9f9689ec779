// Package notify delivers donor emails and emergency alerts. Delivery is
// best-effort: a failed notification is logged and never fails the
// operation that triggered it.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// MailConfig holds SMTP settings. An empty Host disables sending.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plain-text email over SMTP with STARTTLS.
type Mailer struct {
	cfg  MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log  *logger.Logger
}

// NewMailer creates a mailer. When no SMTP host is configured the mailer is
// a no-op that logs what it would have sent.
func NewMailer(cfg MailConfig, log *logger.Logger) *Mailer {
	if log == nil {
		log = logger.Default()
	}
	return &Mailer{
		cfg:  cfg,
		send: smtp.SendMail,
		log:  log.WithComponent("mailer"),
	}
}

// Enabled reports whether mail is actually delivered.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send delivers a plain-text message. Errors are returned for the caller to
// log; callers are expected to treat them as non-fatal.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		m.log.Info("mail disabled, skipping send", "to", to, "subject", subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// SendAsync delivers in a goroutine, logging any failure.
func (m *Mailer) SendAsync(to, subject, body string) {
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			m.log.WithError(err).Error("mail delivery failed", "to", to)
		}
	}()
}
