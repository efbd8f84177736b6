package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironmentMissingProvider(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "")

	_, err := FromEnvironment()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFromEnvironmentComplete(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "custom")
	t.Setenv(EnvPrefix+"SMTP_SERVER", "mail.internal.example.com")
	t.Setenv(EnvPrefix+"SMTP_PORT", "2525")
	t.Setenv(EnvPrefix+"USE_TLS", "false")
	t.Setenv(EnvPrefix+"SENDER_EMAIL", "alerts@example.com")
	t.Setenv(EnvPrefix+"SENDER_PASSWORD", "s3cret")
	t.Setenv(EnvPrefix+"AUTH_METHOD", "password")
	t.Setenv(EnvPrefix+"TIMEOUT", "15")
	t.Setenv(EnvPrefix+"MAX_RETRIES", "5")

	cfg, err := FromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, ProviderCustom, cfg.Provider)
	assert.Equal(t, "mail.internal.example.com", cfg.SMTPServer)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.False(t, cfg.UseTLS)
	assert.Equal(t, "alerts@example.com", cfg.SenderEmail)
	assert.Equal(t, "s3cret", cfg.SenderPassword)
	assert.Equal(t, AuthPassword, cfg.AuthMethod)
	assert.Equal(t, 15, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestFromEnvironmentDefaults(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "Gmail")
	t.Setenv(EnvPrefix+"SENDER_EMAIL", "driver@gmail.com")
	t.Setenv(EnvPrefix+"SENDER_PASSWORD", "app-pass")

	cfg, err := FromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, ProviderGmail, cfg.Provider)
	assert.True(t, cfg.UseTLS)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
}

func TestFromEnvironmentMalformedPort(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "gmail")
	t.Setenv(EnvPrefix+"SMTP_PORT", "not-a-number")

	_, err := FromEnvironment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
}
