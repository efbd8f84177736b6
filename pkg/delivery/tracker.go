package delivery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the delivery state of one send attempt sequence.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSending   Status = "sending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Record tracks one send (the whole retry sequence) by attempt id. Once a
// record reaches a terminal state it never changes again.
type Record struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats are aggregate counts per delivery state.
type Stats struct {
	Queued    int `json:"queued"`
	Sending   int `json:"sending"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Total returns the number of tracked records.
func (s Stats) Total() int {
	return s.Queued + s.Sending + s.Succeeded + s.Failed
}

// Tracker records delivery state for in-flight and historical sends. Many
// concurrent writers (one per in-flight send) and readers are supported; each
// mutation is applied atomically and reads operate on consistent snapshots.
type Tracker struct {
	log  *zap.SugaredLogger
	path string

	mu      sync.RWMutex
	records map[string]*Record
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPersistence makes the tracker journal its records to path so the status
// view survives process restarts. Loading and flushing are best-effort.
func WithPersistence(path string) Option {
	return func(t *Tracker) { t.path = path }
}

// NewTracker creates a Tracker, loading any persisted journal.
func NewTracker(log *zap.SugaredLogger, opts ...Option) *Tracker {
	t := &Tracker{
		log:     log.Named("delivery"),
		records: map[string]*Record{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.path != "" {
		if err := t.load(); err != nil {
			t.log.Warnw("Could not load delivery journal", "path", t.path, "error", err)
		}
	}
	return t
}

// MarkQueued registers a send that is waiting to start.
func (t *Tracker) MarkQueued(id, recipient string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.records[id]; exists {
		return
	}
	now := time.Now().UTC()
	t.records[id] = &Record{
		ID:        id,
		Recipient: recipient,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkSending transitions a send to Sending, creating the record if needed.
// Idempotent: calling it again for an id already in Sending has no effect and
// never creates a duplicate record. Terminal records are left untouched.
func (t *Tracker) MarkSending(id, recipient string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	if record, exists := t.records[id]; exists {
		if record.Status.Terminal() || record.Status == StatusSending {
			return
		}
		record.Status = StatusSending
		record.UpdatedAt = now
		return
	}
	t.records[id] = &Record{
		ID:        id,
		Recipient: recipient,
		Status:    StatusSending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordResult moves a Sending record to its terminal state. Records already
// terminal are never modified.
func (t *Tracker) RecordResult(id string, success bool, attempts int, errCategory string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[id]
	if !exists {
		t.log.Warnw("Result recorded for unknown delivery", "id", id)
		return
	}
	if record.Status.Terminal() {
		t.log.Warnw("Ignoring result for already terminal delivery", "id", id, "status", record.Status)
		return
	}

	record.Attempts = attempts
	record.UpdatedAt = time.Now().UTC()
	if success {
		record.Status = StatusSucceeded
		record.LastError = ""
	} else {
		record.Status = StatusFailed
		record.LastError = errCategory
	}
}

// Status returns a copy of the record for id.
func (t *Tracker) Status(id string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, exists := t.records[id]
	if !exists {
		return Record{}, false
	}
	return *record, true
}

// Recent returns up to n records, newest-first, as a consistent snapshot.
func (t *Tracker) Recent(n int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if n >= 0 && n < len(records) {
		records = records[:n]
	}
	return records
}

// Stats returns aggregate counts per status over a consistent snapshot.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var stats Stats
	for _, r := range t.records {
		switch r.Status {
		case StatusQueued:
			stats.Queued++
		case StatusSending:
			stats.Sending++
		case StatusSucceeded:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Clear drops all records.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = map[string]*Record{}
}

// Cleanup removes terminal records older than maxAge and returns how many
// were dropped. In-flight records are never removed.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for id, r := range t.records {
		if r.Status.Terminal() && r.UpdatedAt.Before(cutoff) {
			delete(t.records, id)
			removed++
		}
	}
	if removed > 0 {
		t.log.Infow("Cleaned up old delivery records", "removed", removed)
	}
	return removed
}

// Flush writes the journal to disk when persistence is configured.
func (t *Tracker) Flush() error {
	if t.path == "" {
		return nil
	}
	t.mu.RLock()
	records := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, *r)
	}
	t.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling delivery journal: %w", err)
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
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
	return os.Rename(tmpName, t.path)
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing delivery journal: %w", err)
	}
	for i := range records {
		record := records[i]
		// Sends interrupted by a crash can never complete.
		if !record.Status.Terminal() {
			record.Status = StatusFailed
			record.LastError = "interrupted by shutdown"
			record.UpdatedAt = time.Now().UTC()
		}
		t.records[record.ID] = &record
	}
	return nil
}
