package mail

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/api/internal/config"
)

func TestNewSMTPMailerDisabledWithoutHost(t *testing.T) {
	mailer, err := NewSMTPMailer(config.MailConfig{From: "Launchpad <no-reply@example.com>"}, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, mailer.Enabled())
}

func TestDisabledMailerSendFails(t *testing.T) {
	for _, cfg := range []config.MailConfig{
		{},
		{Host: "smtp.example.com:465", User: "user"},
		{Host: "smtp.example.com:465", Password: "pass"},
	} {
		mailer, err := NewSMTPMailer(cfg, zerolog.Nop())
		require.NoError(t, err)

		err = mailer.Send("alice@example.com", "hello", "body")
		assert.ErrorIs(t, err, ErrMailDisabled)
	}
}

func TestNewSMTPMailerRejectsBadSender(t *testing.T) {
	_, err := NewSMTPMailer(config.MailConfig{
		Host:     "smtp.example.com:465",
		User:     "user",
		Password: "pass",
		From:     "not an address",
	}, zerolog.Nop())
	assert.Error(t, err)
}
