package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilantes/alertmail/pkg/vault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop().Sugar()
	v, err := vault.New(dir, log)
	require.NoError(t, err)
	s, err := NewStore(dir, v, log)
	require.NoError(t, err)
	return s
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	cfg := validGmailConfig()

	require.NoError(t, s.Save(cfg, "first"))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGmail, loaded.Provider)
	assert.Equal(t, "smtp.gmail.com", loaded.SMTPServer)
	assert.Equal(t, 587, loaded.SMTPPort)
	assert.True(t, loaded.UseTLS)
	assert.Equal(t, cfg.SenderEmail, loaded.SenderEmail)
	assert.Equal(t, cfg.SenderPassword, loaded.SenderPassword)
	assert.Equal(t, AuthAppPassword, loaded.AuthMethod)
}

func TestStoreSaveValidationFailureLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(validGmailConfig(), "first"))
	before, err := os.ReadFile(s.configPath())
	require.NoError(t, err)

	bad := validGmailConfig()
	bad.SenderEmail = "not-an-address"
	bad.SenderPassword = ""

	err = s.Save(bad, "broken")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Violations), 2)

	after, err := os.ReadFile(s.configPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// No backup was taken for the failed save either.
	backups, err := s.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestStoreLoadNotConfigured(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "")
	s := newTestStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStoreLoadFallsBackToEnvironment(t *testing.T) {
	t.Setenv(EnvPrefix+"PROVIDER", "gmail")
	t.Setenv(EnvPrefix+"SENDER_EMAIL", "driver@gmail.com")
	t.Setenv(EnvPrefix+"SENDER_PASSWORD", "env-secret")
	s := newTestStore(t)

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.SenderPassword)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPServer)
}

func TestStoreCredentialsNeverPlaintextOnDisk(t *testing.T) {
	s := newTestStore(t)
	cfg := validGmailConfig()
	cfg.SenderPassword = "super-secret-password"
	require.NoError(t, s.Save(cfg, "first"))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "super-secret-password", "file %s", entry.Name())
	}
}

func TestStoreBackupRetention(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 12; i++ {
		cfg := validGmailConfig()
		require.NoError(t, s.Save(cfg, fmt.Sprintf("save %d", i)))
	}

	backups, err := s.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, maxBackups)

	// Newest first.
	for i := 1; i < len(backups); i++ {
		assert.False(t, backups[i].CreatedAt.After(backups[i-1].CreatedAt))
	}

	// Evicted backup files are gone from disk; retained ones exist.
	for _, b := range backups {
		_, err := os.Stat(b.Path)
		assert.NoError(t, err)
	}
	entries, err := os.ReadDir(s.backupsDir())
	require.NoError(t, err)
	files := 0
	for _, entry := range entries {
		if entry.Name() != backupIndexFile {
			files++
		}
	}
	assert.Equal(t, maxBackups, files)
}

func TestStoreRestore(t *testing.T) {
	s := newTestStore(t)

	first := validGmailConfig()
	require.NoError(t, s.Save(first, "first"))

	second := validGmailConfig()
	second.SenderEmail = "other@gmail.com"
	require.NoError(t, s.Save(second, "second"))

	backups, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	require.NoError(t, s.Restore(backups[0].ID))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, first.SenderEmail, loaded.SenderEmail)

	// The restore snapshotted the pre-restore state as a new backup.
	backups, err = s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Contains(t, backups[0].Description, "pre-restore")
}

func TestStoreRestoreCorruptedBackup(t *testing.T) {
	s := newTestStore(t)

	first := validGmailConfig()
	require.NoError(t, s.Save(first, "first"))

	second := validGmailConfig()
	second.SenderEmail = "other@gmail.com"
	require.NoError(t, s.Save(second, "second"))

	backups, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	// Corrupt the backup file after creation.
	data, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	data[0] ^= 0xff
	require.NoError(t, os.WriteFile(backups[0].Path, data, 0o600))

	primaryBefore, err := os.ReadFile(s.configPath())
	require.NoError(t, err)

	err = s.Restore(backups[0].ID)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, backups[0].ID, ierr.BackupID)

	// Primary store is byte-for-byte unchanged and still loads.
	primaryAfter, err := os.ReadFile(s.configPath())
	require.NoError(t, err)
	assert.Equal(t, primaryBefore, primaryAfter)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, second.SenderEmail, loaded.SenderEmail)
}

func TestStoreRestoreUnknownID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(validGmailConfig(), "first"))

	err := s.Restore("20200101_000000_deadbeef")
	assert.ErrorContains(t, err, "not found")
}

func TestStoreExportRedactsCredentials(t *testing.T) {
	s := newTestStore(t)
	cfg := validGmailConfig()
	cfg.SenderPassword = "do-not-leak"
	require.NoError(t, s.Save(cfg, "first"))

	data, err := s.Export(false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "do-not-leak")

	data, err = s.Export(true)
	require.NoError(t, err)
	assert.Contains(t, string(data), "do-not-leak")
}

func TestStoreImportRoundtrip(t *testing.T) {
	source := newTestStore(t)
	cfg := validGmailConfig()
	require.NoError(t, source.Save(cfg, "first"))

	data, err := source.Export(true)
	require.NoError(t, err)

	target := newTestStore(t)
	require.NoError(t, target.Import(data))

	loaded, err := target.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.SenderEmail, loaded.SenderEmail)
	assert.Equal(t, cfg.SenderPassword, loaded.SenderPassword)
}

func TestStoreImportRevalidates(t *testing.T) {
	s := newTestStore(t)

	err := s.Import([]byte(`{"provider":"gmail","smtp_server":"smtp.attacker.example","smtp_port":587,` +
		`"use_tls":true,"sender_email":"driver@gmail.com","auth_method":"password","sender_password":"pw"}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStoreRotateMasterKey(t *testing.T) {
	s := newTestStore(t)
	cfg := validGmailConfig()
	require.NoError(t, s.Save(cfg, "first"))

	require.NoError(t, s.RotateMasterKey())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.SenderPassword, loaded.SenderPassword)
}

func TestStoreFilePermissions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(validGmailConfig(), "first"))

	for _, name := range []string{configFile, credentialsFile} {
		info, err := os.Stat(filepath.Join(s.dir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}
	info, err := os.Stat(s.backupsDir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
