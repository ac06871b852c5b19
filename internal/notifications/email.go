package notifications

import (
	"context"
	"fmt"

	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"

	"gopkg.in/gomail.v2"
)

const mailProvider = "smtp"

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML mail through gomail.
type SMTPMailer struct {
	dialer dialer
	from   string
	log    *logger.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return apperrors.UpstreamFailure(mailProvider, fmt.Errorf("send %q to %s: %w", subject, to, err))
	}

	m.log.Debug("Email sent", "to", to, "subject", subject)
	return nil
}
