// Package smtp delivers notifications by email.
package smtp

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/couchcryptid/weather-alarm-service/internal/config"
	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// Mailer sends each notification as a plain-text email.
// It implements notify.Notifier.
type Mailer struct {
	from   string
	to     []string
	send   func(m ...*gomail.Message) error
	logger *slog.Logger
}

// NewMailer creates a Mailer that dials the configured SMTP server for every
// message.
func NewMailer(cfg *config.Config, logger *slog.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return &Mailer{
		from:   cfg.SMTPFrom,
		to:     cfg.SMTPTo,
		send:   dialer.DialAndSend,
		logger: logger,
	}
}

// Notify emails n to every configured recipient.
func (m *Mailer) Notify(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.message(n)); err != nil {
		return fmt.Errorf("send email %s: %w", n.ID, err)
	}
	m.logger.Debug("notification emailed", "id", n.ID, "recipients", len(m.to))
	return nil
}

func (m *Mailer) message(n domain.Notification) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", n.Title)
	msg.SetHeader("X-Notification-Kind", n.Kind)
	msg.SetDateHeader("Date", n.CreatedAt)
	msg.SetBody("text/plain", n.Body)
	return msg
}
