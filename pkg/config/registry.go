package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ProviderDefaults are the registry connection settings for a known provider.
type ProviderDefaults struct {
	Server string
	Port   int
	UseTLS bool
}

// registry of known SMTP providers. Custom has no entry; server and port are
// mandatory there.
var registry = map[Provider]ProviderDefaults{
	ProviderGmail:   {Server: "smtp.gmail.com", Port: 587, UseTLS: true},
	ProviderOutlook: {Server: "smtp-mail.outlook.com", Port: 587, UseTLS: true},
	ProviderYahoo:   {Server: "smtp.mail.yahoo.com", Port: 587, UseTLS: true},
}

// Defaults returns the registry defaults for a known provider.
func Defaults(p Provider) (ProviderDefaults, bool) {
	d, ok := registry[p]
	return d, ok
}

// emailPattern is a basic syntax check, not full RFC 5322.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether addr passes the basic email syntax check.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Violation is a single configuration problem found during validation.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError aggregates every violation found in a configuration. It is
// never raised for the first problem alone.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "invalid email configuration: " + strings.Join(msgs, "; ")
}

// Validate checks cfg against the provider registry and returns every
// violation found; an empty slice means the configuration is valid.
//
// For known providers, unset server and port are filled in from the registry
// (enabling TLS alongside); values the caller did supply must match the
// registry defaults. For the custom provider, server and port are mandatory.
func Validate(cfg *EmailConfig) []Violation {
	var violations []Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.Provider {
	case ProviderGmail, ProviderOutlook, ProviderYahoo:
		defaults := registry[cfg.Provider]
		serverSupplied := cfg.SMTPServer != ""
		if !serverSupplied {
			cfg.SMTPServer = defaults.Server
			cfg.UseTLS = defaults.UseTLS
		} else if cfg.SMTPServer != defaults.Server {
			add("smtp_server", "provider %s uses %s, got %q", cfg.Provider, defaults.Server, cfg.SMTPServer)
		}
		if cfg.SMTPPort == 0 {
			cfg.SMTPPort = defaults.Port
		} else if cfg.SMTPPort != defaults.Port {
			add("smtp_port", "provider %s uses port %d, got %d", cfg.Provider, defaults.Port, cfg.SMTPPort)
		}
		if serverSupplied && cfg.UseTLS != defaults.UseTLS {
			add("use_tls", "provider %s requires TLS", cfg.Provider)
		}
	case ProviderCustom:
		if cfg.SMTPServer == "" {
			add("smtp_server", "required for the custom provider")
		}
		if cfg.SMTPPort == 0 {
			add("smtp_port", "required for the custom provider")
		}
	default:
		add("provider", "unknown provider %q", cfg.Provider)
	}

	if cfg.SMTPPort < 0 || cfg.SMTPPort > 65535 {
		add("smtp_port", "must be between 1 and 65535, got %d", cfg.SMTPPort)
	}
	if !ValidEmail(cfg.SenderEmail) {
		add("sender_email", "not a valid email address: %q", cfg.SenderEmail)
	}
	if cfg.SenderPassword == "" {
		add("sender_password", "must not be empty")
	}
	switch cfg.AuthMethod {
	case AuthPassword, AuthAppPassword, AuthOAuth2:
	default:
		add("auth_method", "unknown auth method %q", cfg.AuthMethod)
	}
	if cfg.Timeout < 0 {
		add("timeout", "must not be negative, got %d", cfg.Timeout)
	}
	if cfg.MaxRetries < 0 {
		add("max_retries", "must not be negative, got %d", cfg.MaxRetries)
	}

	return violations
}
