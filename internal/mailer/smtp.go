// Package mailer delivers plain-text notification mail over SMTP. The only
// consumer is the password-reset flow, which degrades gracefully when
// delivery fails.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
)

// SMTPMailer implements the MailSender port over a plain SMTP relay.
type SMTPMailer struct {
	host string
	port string
	from string
}

// NewSMTPMailer creates a mailer from the configured SMTP settings.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{host: cfg.SMTPHost, port: cfg.SMTPPort, from: cfg.SMTPFrom}
}

// Ensure SMTPMailer implements the MailSender port
var _ portssvc.MailSender = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("no SMTP host configured")
	}
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	addr := net.JoinHostPort(m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}
