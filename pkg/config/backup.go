package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vigilantes/alertmail/pkg/metrics"
)

// maxBackups is the number of configuration backups retained; the oldest is
// evicted first once the limit is exceeded.
const maxBackups = 10

const backupIndexFile = "backup_index.json"

// Backup is the metadata of one configuration snapshot.
type Backup struct {
	ID          string    `json:"backup_id"`
	CreatedAt   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Hash        string    `json:"config_hash"`
	Path        string    `json:"file_path"`
}

// backupIndex is the on-disk index; entries are kept oldest-first.
type backupIndex struct {
	Backups []Backup `json:"backups"`
}

// ListBackups returns all backups ordered newest-first.
func (s *Store) ListBackups() ([]Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndexLocked()
	if err != nil {
		return nil, err
	}
	backups := make([]Backup, len(index.Backups))
	for i, b := range index.Backups {
		backups[len(index.Backups)-1-i] = b
	}
	return backups, nil
}

// Restore replaces the primary configuration with the contents of the given
// backup. The backup's content hash is recomputed first; a mismatch fails
// with *IntegrityError and leaves the primary store unchanged. On a match the
// current primary state is snapshotted as a pre-restore backup before the
// atomic overwrite.
func (s *Store) Restore(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndexLocked()
	if err != nil {
		return err
	}
	var backup *Backup
	for i := range index.Backups {
		if index.Backups[i].ID == id {
			backup = &index.Backups[i]
			break
		}
	}
	if backup == nil {
		metrics.ConfigRestoreFailed.WithLabelValues("not_found").Inc()
		return fmt.Errorf("backup %s not found", id)
	}

	data, err := os.ReadFile(backup.Path)
	if err != nil {
		metrics.ConfigRestoreFailed.WithLabelValues("unreadable").Inc()
		return fmt.Errorf("reading backup %s: %w", id, err)
	}
	if actual := hashBytes(data); actual != backup.Hash {
		metrics.ConfigRestoreFailed.WithLabelValues("integrity").Inc()
		return &IntegrityError{BackupID: id, Expected: backup.Hash, Actual: actual}
	}

	if _, err := os.Stat(s.configPath()); err == nil {
		if _, err := s.createBackupLocked("pre-restore snapshot before " + id); err != nil {
			return fmt.Errorf("snapshotting current configuration: %w", err)
		}
	}

	if err := writeFileAtomic(s.configPath(), data, 0o600); err != nil {
		return fmt.Errorf("restoring configuration: %w", err)
	}
	if err := s.pruneBackupsLocked(); err != nil {
		s.log.Warnw("Failed to prune old backups", "error", err)
	}

	s.log.Infow("Configuration restored from backup", "backup", id)
	return nil
}

// createBackupLocked snapshots the current config.json into the backups
// directory and records it in the index. Caller holds s.mu.
func (s *Store) createBackupLocked(description string) (Backup, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		return Backup{}, fmt.Errorf("reading configuration for backup: %w", err)
	}

	now := time.Now().UTC()
	id := now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
	path := filepath.Join(s.backupsDir(), "config_backup_"+id+".json")

	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return Backup{}, fmt.Errorf("writing backup file: %w", err)
	}

	backup := Backup{
		ID:          id,
		CreatedAt:   now,
		Description: description,
		Hash:        hashBytes(data),
		Path:        path,
	}

	index, err := s.loadIndexLocked()
	if err != nil {
		return Backup{}, err
	}
	index.Backups = append(index.Backups, backup)
	if err := s.writeIndexLocked(index); err != nil {
		return Backup{}, err
	}

	metrics.ConfigBackupsCreated.Inc()
	s.log.Infow("Configuration backup created", "backup", id, "description", description)
	return backup, nil
}

// pruneBackupsLocked evicts the oldest backups until at most maxBackups
// remain. Caller holds s.mu.
func (s *Store) pruneBackupsLocked() error {
	index, err := s.loadIndexLocked()
	if err != nil {
		return err
	}
	if len(index.Backups) <= maxBackups {
		return nil
	}

	evicted := index.Backups[:len(index.Backups)-maxBackups]
	index.Backups = index.Backups[len(index.Backups)-maxBackups:]

	for _, b := range evicted {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warnw("Failed to remove evicted backup file", "backup", b.ID, "error", err)
		}
		metrics.ConfigBackupsPruned.Inc()
		s.log.Debugw("Backup evicted by retention policy", "backup", b.ID)
	}
	return s.writeIndexLocked(index)
}

func (s *Store) loadIndexLocked() (*backupIndex, error) {
	index := &backupIndex{}
	data, err := os.ReadFile(filepath.Join(s.backupsDir(), backupIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("reading backup index: %w", err)
	}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("parsing backup index: %w", err)
	}
	return index, nil
}

func (s *Store) writeIndexLocked(index *backupIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling backup index: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.backupsDir(), backupIndexFile), data, 0o600)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
