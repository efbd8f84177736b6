package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validGmailConfig() *EmailConfig {
	return &EmailConfig{
		Provider:       ProviderGmail,
		SenderEmail:    "driver@gmail.com",
		SenderPassword: "abcd efgh ijkl mnop",
		AuthMethod:     AuthAppPassword,
		Timeout:        30,
		MaxRetries:     3,
	}
}

func TestValidateAutofillsKnownProvider(t *testing.T) {
	cfg := validGmailConfig()

	violations := Validate(cfg)
	assert.Empty(t, violations)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPServer)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.UseTLS)
}

func TestValidateRejectsConflictingServer(t *testing.T) {
	cfg := validGmailConfig()
	cfg.SMTPServer = "smtp.example.com"
	cfg.SMTPPort = 2525

	violations := Validate(cfg)
	assert.Len(t, violations, 2)
}

func TestValidateRejectsDisabledTLSForKnownProvider(t *testing.T) {
	cfg := validGmailConfig()
	cfg.SMTPServer = "smtp.gmail.com"
	cfg.SMTPPort = 587
	cfg.UseTLS = false

	violations := Validate(cfg)
	assert.Len(t, violations, 1)
	assert.Equal(t, "use_tls", violations[0].Field)
}

func TestValidateCustomRequiresServerAndPort(t *testing.T) {
	cfg := &EmailConfig{
		Provider:       ProviderCustom,
		SenderEmail:    "ops@example.com",
		SenderPassword: "hunter22",
		AuthMethod:     AuthPassword,
		Timeout:        10,
		MaxRetries:     1,
	}

	violations := Validate(cfg)
	fields := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"smtp_server", "smtp_port"}, fields)
}

func TestValidateAggregatesAllViolations(t *testing.T) {
	// Every check fires; none may short-circuit the rest.
	cfg := &EmailConfig{
		Provider:    Provider("hotmail"),
		SMTPPort:    99999,
		SenderEmail: "not-an-address",
		AuthMethod:  AuthMethod("magic"),
		Timeout:     -1,
		MaxRetries:  -1,
	}

	violations := Validate(cfg)
	assert.GreaterOrEqual(t, len(violations), 6)

	err := &ValidationError{Violations: violations}
	for _, v := range violations {
		assert.Contains(t, err.Error(), v.Field)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("driver@gmail.com"))
	assert.True(t, ValidEmail("first.last+tag@sub.example.co"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("missing-at.example.com"))
	assert.False(t, ValidEmail("user@nodot"))
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("gmail")
	assert.NoError(t, err)
	assert.Equal(t, ProviderGmail, p)

	_, err = ParseProvider("aol")
	assert.Error(t, err)
}
