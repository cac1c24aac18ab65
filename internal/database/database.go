// Package database is the persistent store for hotspots, visited systems
// and ingestion bookkeeping, backed by a single SQLite file.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"prospector/internal/reconcile"
)

var (
	// ErrNotOpen is returned by operations on a closed database.
	ErrNotOpen = errors.New("database not open")
	// ErrSchemaVersion marks a store file from an incompatible schema.
	ErrSchemaVersion = errors.New("unsupported schema version")
	// ErrBusy marks a write abandoned after exhausting lock retries.
	ErrBusy = errors.New("database busy")
)

// Database is the store interface the rest of the application depends on.
type Database interface {
	Open(path string) error
	Close() error

	// Hotspot operations
	UpsertHotspot(obs reconcile.Observation, runID string) (UpsertResult, error)
	GetHotspot(system, ring, material string) (*HotspotRecord, error)
	SearchHotspots(filter SearchFilter) ([]HotspotRecord, error)
	GetRingMetadata(system, ring string) (reconcile.RingMetadata, error)
	RingMaterials(system, ring string) ([]HotspotRecord, error)
	PropagateRingMetadata(system, ring string, learned reconcile.RingMetadata) (int, error)

	// Visited systems
	RecordArrival(system string, hasPos bool, x, y, z float64, at time.Time) error
	GetVisitedSystem(system string) (*VisitedSystem, error)
	AllVisitedSystems() ([]VisitedSystem, error)

	// Scan-position bookmarks
	LoadScanPosition(path string) (*ScanPosition, error)
	SaveScanPosition(pos ScanPosition) error

	// Conflicts and bookmarks
	ListConflicts(limit int) ([]Conflict, error)
	AddBookmark(system, ring, material, note string) error
	RemoveBookmark(system, ring, material string) error
	ListBookmarks() ([]Bookmark, error)
	IsBookmarked(system, ring, material string) (bool, error)

	// Maintenance operations
	RemoveDuplicateHotspots() (int, error)
	NormalizeNames() (int, error)
	BackfillRingMetadata() (int, error)
	RecomputeVisitCounts() (int, error)

	GetDB() *sql.DB
}

// RetryPolicy bounds busy-lock retries on writes.
type RetryPolicy struct {
	Attempts uint
	Interval time.Duration
}

// DefaultRetryPolicy matches a GUI instance tailing the same file: a few
// short retries, then give up on that one record.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Interval: 50 * time.Millisecond}
}

// SQLiteDatabase implements Database on modernc.org/sqlite.
type SQLiteDatabase struct {
	db     *sql.DB
	dbOpen bool
	path   string
	retry  RetryPolicy
}

// New creates an unopened database handle with the default retry policy.
func New() *SQLiteDatabase {
	return &SQLiteDatabase{retry: DefaultRetryPolicy()}
}

// SetRetryPolicy replaces the busy-lock retry policy. Call before Open.
func (d *SQLiteDatabase) SetRetryPolicy(p RetryPolicy) {
	if p.Attempts > 0 {
		d.retry = p
	}
}

// Open opens (creating if necessary) the store file, creates missing tables
// and refuses databases from an incompatible schema version.
func (d *SQLiteDatabase) Open(path string) error {
	if d.dbOpen {
		return fmt.Errorf("database already open")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(2000)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids self-inflicted
	// lock contention inside one process.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.db = db
	if err = d.createSchema(); err != nil {
		db.Close()
		d.db = nil
		return err
	}
	if err = d.validateSchema(); err != nil {
		db.Close()
		d.db = nil
		return fmt.Errorf("invalid database schema: %w", err)
	}

	d.path = path
	d.dbOpen = true
	return nil
}

// Close closes the store. Safe to call on a closed database.
func (d *SQLiteDatabase) Close() error {
	if !d.dbOpen {
		return nil
	}
	d.dbOpen = false
	d.path = ""
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// GetDB exposes the underlying handle for advanced operations and tests.
func (d *SQLiteDatabase) GetDB() *sql.DB {
	return d.db
}

// withTx runs fn inside a transaction, retrying the whole transaction with
// exponential backoff while the database is locked by another instance.
// Non-busy errors are permanent. A failure here fails one logical write,
// never a whole run.
func (d *SQLiteDatabase) withTx(fn func(tx *sql.Tx) error) error {
	if !d.dbOpen {
		return ErrNotOpen
	}

	op := func() error {
		tx, err := d.db.Begin()
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retry.Interval
	bo.MaxInterval = time.Second

	err := backoff.Retry(op, backoff.WithMaxRetries(bo, uint64(d.retry.Attempts-1)))
	if err != nil && isBusy(err) {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}

// isBusy recognizes SQLite lock contention across driver error spellings.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}
