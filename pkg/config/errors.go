package config

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when neither the persisted store nor the
// process environment yields a complete configuration.
var ErrNotConfigured = errors.New("email service is not configured")

// IntegrityError is returned when a backup's recomputed content hash does not
// match the hash recorded at creation time. The primary store is left
// untouched.
type IntegrityError struct {
	BackupID string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("backup %s failed integrity check: recorded hash %s, recomputed %s",
		e.BackupID, e.Expected, e.Actual)
}
