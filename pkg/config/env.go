package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of all environment variables read as the fallback
// configuration source.
const EnvPrefix = "EMAIL_SERVICE_"

// FromEnvironment builds an EmailConfig from EMAIL_SERVICE_* environment
// variables. It returns ErrNotConfigured when the provider variable is unset,
// and a descriptive error when a variable is present but malformed.
func FromEnvironment() (*EmailConfig, error) {
	providerStr := os.Getenv(EnvPrefix + "PROVIDER")
	if providerStr == "" {
		return nil, ErrNotConfigured
	}
	provider, err := ParseProvider(strings.ToLower(providerStr))
	if err != nil {
		return nil, fmt.Errorf("%sPROVIDER: %w", EnvPrefix, err)
	}

	cfg := &EmailConfig{
		Provider:       provider,
		SMTPServer:     os.Getenv(EnvPrefix + "SMTP_SERVER"),
		UseTLS:         envBool("USE_TLS", true),
		SenderEmail:    os.Getenv(EnvPrefix + "SENDER_EMAIL"),
		SenderPassword: os.Getenv(EnvPrefix + "SENDER_PASSWORD"),
		AuthMethod:     AuthPassword,
	}

	if cfg.SMTPPort, err = envInt("SMTP_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = envInt("TIMEOUT", DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", DefaultMaxRetries); err != nil {
		return nil, err
	}
	if methodStr := os.Getenv(EnvPrefix + "AUTH_METHOD"); methodStr != "" {
		if cfg.AuthMethod, err = ParseAuthMethod(strings.ToLower(methodStr)); err != nil {
			return nil, fmt.Errorf("%sAUTH_METHOD: %w", EnvPrefix, err)
		}
	}

	return cfg, nil
}

func envBool(name string, fallback bool) bool {
	if value := os.Getenv(EnvPrefix + name); value != "" {
		return strings.EqualFold(value, "true")
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	value := os.Getenv(EnvPrefix + name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s%s: expected integer, got %q", EnvPrefix, name, value)
	}
	return n, nil
}
