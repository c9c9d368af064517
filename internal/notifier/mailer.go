package notifier

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
	"github.com/swaadanna/storefront/internal/receipt"
)

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	calc *pricing.Calculator
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		calc: pricing.New(),
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.message(order), m.addr, m.auth); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", order.OrderID, err)
	}
	return nil
}

func (m *SMTPMailer) message(order *domain.Order) *email.Email {
	subject, body := receipt.ConfirmationEmail(order, m.calc)

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{order.CustomerEmail}
	e.Subject = subject
	e.Text = []byte(body)
	return e
}

// LogMailer stands in for SMTP when no mail host is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	subject, _ := receipt.ConfirmationEmail(order, nil)
	m.log.Info().Ctx(ctx).
		Str("order_id", order.OrderID).
		Str("to", order.CustomerEmail).
		Str("subject", subject).
		Msg("confirmation email (smtp disabled)")
	return nil
}
