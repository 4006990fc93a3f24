// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"context"
	"net"
	"strconv"
	"testing"

	"codeberg.org/oliverandrich/sampletrack/internal/config"
	"codeberg.org/oliverandrich/sampletrack/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Test App",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig())

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestMessage(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig())
	require.NoError(t, err)

	msg, err := svc.Message("the body", "the subject", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"<alice@example.com>"}, msg.GetToString())
	assert.Equal(t, []string{"the subject"}, msg.GetGenHeader(mail.HeaderSubject))
	require.Len(t, msg.GetFromString(), 1)
	assert.Contains(t, msg.GetFromString()[0], "noreply@example.com")
	assert.Contains(t, msg.GetFromString()[0], "Test App")
}

func TestMessage_InvalidRecipient(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig())
	require.NoError(t, err)

	_, err = svc.Message("body", "subject", "not an address")

	assert.Error(t, err)
}

func TestSend_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it again so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := validSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.TLS = false
	svc, err := email.NewService(cfg)
	require.NoError(t, err)

	err = svc.Send(context.Background(), "body", "subject", "alice@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending email")
}

func TestDisabled(t *testing.T) {
	err := email.Disabled{}.Send(context.Background(), "body", "subject", "alice@example.com")

	assert.ErrorIs(t, err, email.ErrNotConfigured)
}
