package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Portable is the export/import JSON shape. The password is only present when
// the caller explicitly asked for credentials to be included.
type Portable struct {
	EmailConfig
	SenderPassword string    `json:"sender_password,omitempty"`
	ExportedAt     time.Time `json:"exported_at"`
}

// Export serializes the persisted configuration for transfer to another
// machine. Credentials are redacted unless includeCredentials is set.
func (s *Store) Export(includeCredentials bool) ([]byte, error) {
	cfg, err := s.loadFromFiles()
	if err != nil {
		return nil, err
	}

	portable := Portable{EmailConfig: *cfg, ExportedAt: time.Now().UTC()}
	portable.EmailConfig.SenderPassword = ""
	if includeCredentials {
		portable.SenderPassword = cfg.SenderPassword
		s.log.Warn("Exporting configuration with credentials included")
	}

	return json.MarshalIndent(portable, "", "  ")
}

// Import parses exported configuration data, re-validates it, and saves it as
// the current configuration (creating the usual backup of the prior state).
func (s *Store) Import(data []byte) error {
	var portable Portable
	if err := json.Unmarshal(data, &portable); err != nil {
		return fmt.Errorf("parsing imported configuration: %w", err)
	}

	cfg := portable.EmailConfig
	cfg.SenderPassword = portable.SenderPassword
	return s.Save(&cfg, "imported configuration")
}
