package config

import (
	"fmt"
	"time"
)

// Provider identifies a known SMTP provider or a custom server.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderYahoo   Provider = "yahoo"
	ProviderCustom  Provider = "custom"
)

// ParseProvider converts a string into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGmail, ProviderOutlook, ProviderYahoo, ProviderCustom:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// AuthMethod is the SMTP authentication method.
type AuthMethod string

const (
	AuthPassword    AuthMethod = "password"
	AuthAppPassword AuthMethod = "app_password"
	AuthOAuth2      AuthMethod = "oauth2"
)

// ParseAuthMethod converts a string into an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch AuthMethod(s) {
	case AuthPassword, AuthAppPassword, AuthOAuth2:
		return AuthMethod(s), nil
	}
	return "", fmt.Errorf("unknown auth method %q", s)
}

// EmailConfig is the full email delivery configuration. SenderPassword is the
// only secret field; it is never written to the primary store and travels
// through the vault instead.
type EmailConfig struct {
	Provider       Provider   `json:"provider"`
	SMTPServer     string     `json:"smtp_server"`
	SMTPPort       int        `json:"smtp_port"`
	UseTLS         bool       `json:"use_tls"`
	SenderEmail    string     `json:"sender_email"`
	SenderPassword string     `json:"-"`
	AuthMethod     AuthMethod `json:"auth_method"`
	// Timeout is the per-attempt SMTP timeout in seconds.
	Timeout int `json:"timeout"`
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `json:"max_retries"`
}

const (
	DefaultTimeout    = 30
	DefaultMaxRetries = 3
)

// Defaults fills zero-valued Timeout and MaxRetries. Server, port and TLS
// defaults for known providers are applied by Validate.
func (c *EmailConfig) Defaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.AuthMethod == "" {
		c.AuthMethod = AuthPassword
	}
}

// TimeoutDuration returns the per-attempt timeout as a time.Duration.
func (c *EmailConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
