package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const settingsFile = "settings.yaml"

// Settings are the ctl client's own preferences, kept in a YAML file beside
// the email configuration. All fields are optional; flags and environment
// variables take precedence.
type Settings struct {
	Keyring          bool   `yaml:"keyring,omitempty"`
	Verbose          bool   `yaml:"verbose,omitempty"`
	DefaultRecipient string `yaml:"default_recipient,omitempty"`
}

// LoadSettings reads the settings file under dir. A missing file yields zero
// settings, not an error.
func LoadSettings(dir string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(filepath.Join(dir, settingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing %s: %w", settingsFile, err)
	}
	return settings, nil
}

// SaveSettings writes the settings file under dir.
func SaveSettings(dir string, settings Settings) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, settingsFile), data, 0o600)
}
