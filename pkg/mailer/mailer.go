// Package mailer sends transactional email through SendGrid.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// New returns a SendGrid mailer, or a logging no-op when apiKey is empty.
func New(apiKey, from, fromName string, log *zap.Logger) Mailer {
	if apiKey == "" {
		log.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return &LogMailer{log: log}
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, from),
	}
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewSingleEmail(m.from, email.Subject, mail.NewEmail(email.ToName, email.To), email.Text, email.HTML)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: send to %s: %w", email.To, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: send to %s: status %d: %s", email.To, resp.StatusCode, resp.Body)
	}
	return nil
}

type LogMailer struct {
	log *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("email not sent, mailer disabled",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}
