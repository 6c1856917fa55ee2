package backend

import (
	"context"
	"errors"

	"smartexpense/internal/core"
	"smartexpense/internal/records"
)

// ErrReadOnly is returned when a write is requested from a backend without a write path.
var ErrReadOnly = errors.New("backend is read-only")

// Pinger reports backend reachability for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store and optional write path and cleanup.
type BackendResult struct {
	Store   records.Store
	Writer  records.Writer // nil for read-only backends
	Pinger  Pinger
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string

	// Demo data, written once when the demo user has no records yet
	SeedDemo  bool
	DemoUser  core.UserID
	SeedMonth core.Date
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Writable reports whether the backend type has a write path.
func (bt BackendType) Writable() bool {
	return bt != SheetsBackend
}
