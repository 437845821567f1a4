package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
	"github.com/rs/zerolog"

	"launchpad/api/internal/config"
)

// ErrMailDisabled is returned by Send when no SMTP server is configured.
var ErrMailDisabled = errors.New("mail delivery disabled")

// SMTPMailer delivers transactional email from a fixed sender address.
// With no SMTP host configured it is disabled and every Send fails.
type SMTPMailer struct {
	client   *goemail.SMTP
	name     string
	address  string
	disabled bool
	log      zerolog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, log zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		log.Warn().Msg("smtp not configured, email delivery disabled")
		return &SMTPMailer{disabled: true, log: log}, nil
	}

	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("parse mail.from: %w", err)
	}

	u := url.URL{
		Scheme: "smtps",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host,
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipVerify}
	client, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("init smtp: %w", err)
	}

	return &SMTPMailer{
		client:  client,
		name:    from.Name,
		address: from.Address,
		log:     log,
	}, nil
}

func (m *SMTPMailer) Enabled() bool {
	return !m.disabled
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.disabled {
		m.log.Warn().Str("to", to).Str("subject", subject).Msg("email delivery disabled, message dropped")
		return ErrMailDisabled
	}

	msg := goemail.NewMessage(m.address, subject, body)
	msg.SetName(m.name)
	msg.AddBCC(to)

	if err := m.client.Send(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
