package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vigilantes/alertmail/pkg/metrics"
	"github.com/vigilantes/alertmail/pkg/vault"
)

const (
	configFile      = "config.json"
	credentialsFile = "credentials.enc"
	backupsDirName  = "backups"
	configVersion   = "1.0"
)

// Store persists the non-secret email configuration and delegates the secret
// fields to the vault. Writes are single-writer; readers always observe either
// the pre- or post-write state thanks to atomic renames.
type Store struct {
	dir   string
	vault *vault.Vault
	log   *zap.SugaredLogger

	// mu serializes Save and Restore so backup creation never interleaves.
	mu sync.Mutex
}

// persistedConfig is the on-disk shape of config.json. SenderPassword is
// excluded by its json tag and stored encrypted in credentials.enc.
type persistedConfig struct {
	EmailConfig
	LastUpdated time.Time `json:"last_updated"`
	Version     string    `json:"version"`
}

// credentialFile is the on-disk shape of credentials.enc.
type credentialFile struct {
	Password  vault.Blob `json:"password"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewStore creates a Store rooted at dir, creating the directory layout with
// restrictive permissions.
func NewStore(dir string, v *vault.Vault, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, backupsDirName), 0o700); err != nil {
		return nil, fmt.Errorf("creating config dirs: %w", err)
	}
	return &Store{dir: dir, vault: v, log: log.Named("config-store")}, nil
}

func (s *Store) configPath() string      { return filepath.Join(s.dir, configFile) }
func (s *Store) credentialsPath() string { return filepath.Join(s.dir, credentialsFile) }
func (s *Store) backupsDir() string      { return filepath.Join(s.dir, backupsDirName) }

// Save validates cfg, snapshots the prior persisted state into a new backup,
// then atomically writes the non-secret fields to config.json and the
// encrypted password to credentials.enc. On a validation failure the primary
// store is left untouched and the returned *ValidationError carries every
// violation found.
func (s *Store) Save(cfg *EmailConfig, description string) error {
	clean := *cfg
	clean.SMTPServer = vault.Sanitize(clean.SMTPServer)
	clean.SenderEmail = strings.ToLower(vault.Sanitize(clean.SenderEmail))
	clean.Defaults()

	if violations := Validate(&clean); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.configPath()); err == nil {
		if _, err := s.createBackupLocked(description); err != nil {
			return fmt.Errorf("snapshotting previous configuration: %w", err)
		}
	}

	data, err := json.MarshalIndent(persistedConfig{
		EmailConfig: clean,
		LastUpdated: time.Now().UTC(),
		Version:     configVersion,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	if err := writeFileAtomic(s.configPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	if err := s.saveCredentialsLocked(clean.SenderPassword); err != nil {
		return err
	}

	if err := s.pruneBackupsLocked(); err != nil {
		s.log.Warnw("Failed to prune old backups", "error", err)
	}

	metrics.ConfigSaved.Inc()
	s.log.Infow("Configuration saved", "provider", clean.Provider, "server", clean.SMTPServer)
	return nil
}

// saveCredentialsLocked re-encrypts the password under the master key. A
// fresh nonce is used on every save.
func (s *Store) saveCredentialsLocked(password string) error {
	key, err := s.vault.MasterKey()
	if err != nil {
		return fmt.Errorf("obtaining master key: %w", err)
	}

	secret := []byte(password)
	defer vault.Wipe(secret)

	blob, err := vault.Encrypt(secret, key)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	cred := credentialFile{Password: blob, CreatedAt: now, UpdatedAt: now}
	if prev, err := s.loadCredentialFile(); err == nil {
		cred.CreatedAt = prev.CreatedAt
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := writeFileAtomic(s.credentialsPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Load reads the persisted configuration, decrypting the secret fields. When
// the primary store is absent or incomplete it falls back to the process
// environment; if neither source yields a complete configuration it fails
// with ErrNotConfigured.
func (s *Store) Load() (*EmailConfig, error) {
	cfg, err := s.loadFromFiles()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotConfigured) {
		return nil, err
	}

	envCfg, envErr := FromEnvironment()
	if envErr != nil {
		if errors.Is(envErr, ErrNotConfigured) {
			return nil, ErrNotConfigured
		}
		return nil, envErr
	}
	envCfg.Defaults()
	if violations := Validate(envCfg); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	s.log.Info("Loaded configuration from environment variables")
	return envCfg, nil
}

func (s *Store) loadFromFiles() (*EmailConfig, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var persisted persistedConfig
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cred, err := s.loadCredentialFile()
	if err != nil {
		if os.IsNotExist(err) {
			// Config without credentials is incomplete.
			return nil, ErrNotConfigured
		}
		return nil, err
	}

	key, err := s.vault.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("obtaining master key: %w", err)
	}
	secret, err := s.vault.Decrypt(cred.Password, key)
	if err != nil {
		return nil, err
	}
	defer vault.Wipe(secret)

	cfg := persisted.EmailConfig
	cfg.SenderPassword = string(secret)
	cfg.Defaults()
	return &cfg, nil
}

func (s *Store) loadCredentialFile() (credentialFile, error) {
	var cred credentialFile
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		return cred, err
	}
	if err := json.Unmarshal(data, &cred); err != nil {
		return cred, fmt.Errorf("parsing credentials file: %w", err)
	}
	return cred, nil
}

// RotateMasterKey generates a new master key and re-encrypts the stored
// credentials under it in a single step; no lazy migration.
func (s *Store) RotateMasterKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.loadCredentialFile()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotConfigured
		}
		return err
	}

	rotated, err := s.vault.RotateMasterKey(cred.Password)
	if err != nil {
		return err
	}

	cred.Password = rotated
	cred.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	return writeFileAtomic(s.credentialsPath(), data, 0o600)
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it into place so a concurrent reader never observes a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
