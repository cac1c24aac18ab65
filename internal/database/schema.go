package database

import "fmt"

// schemaVersion gates one-time migrations. A database reporting a different
// version is refused rather than silently reinterpreted.
const schemaVersion = "1"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// One row per (system, ring, material). Ring metadata columns are
	// duplicated across sibling materials for query convenience; the upsert
	// backfill and GetRingMetadata keep them consistent.
	`CREATE TABLE IF NOT EXISTS hotspots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		system_name TEXT NOT NULL,
		ring_name TEXT NOT NULL,
		material TEXT NOT NULL,
		count INTEGER NOT NULL CHECK (count > 0),
		ring_class TEXT NOT NULL DEFAULT 'Unknown',
		distance_ls REAL,
		inner_radius REAL,
		outer_radius REAL,
		ring_mass REAL,
		density REAL,
		source TEXT NOT NULL DEFAULT 'game-log',
		scanned_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(system_name, ring_name, material)
	);`,

	`CREATE INDEX IF NOT EXISTS idx_hotspots_material ON hotspots(material);`,
	`CREATE INDEX IF NOT EXISTS idx_hotspots_system ON hotspots(system_name);`,

	`CREATE TABLE IF NOT EXISTS visited_systems (
		system_name TEXT PRIMARY KEY,
		x REAL,
		y REAL,
		z REAL,
		first_visit DATETIME NOT NULL,
		last_visit DATETIME NOT NULL,
		visit_count INTEGER NOT NULL DEFAULT 0
	);`,

	// Deduplicated arrivals; visit_count is always derivable from this
	// table so overlapping journal re-reads cannot drift it.
	`CREATE TABLE IF NOT EXISTS system_arrivals (
		system_name TEXT NOT NULL,
		arrived_at DATETIME NOT NULL,
		UNIQUE(system_name, arrived_at)
	);`,

	`CREATE TABLE IF NOT EXISTS scan_positions (
		file_path TEXT PRIMARY KEY,
		first_line_hash TEXT NOT NULL,
		byte_offset INTEGER NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS conflicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		system_name TEXT NOT NULL,
		ring_name TEXT NOT NULL,
		material TEXT NOT NULL,
		field TEXT NOT NULL,
		stored_value TEXT NOT NULL,
		observed_value TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		system_name TEXT NOT NULL,
		ring_name TEXT NOT NULL,
		material TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(system_name, ring_name, material)
	);`,
}

// requiredTables is checked by validateSchema after creation.
var requiredTables = []string{
	"schema_info",
	"hotspots",
	"visited_systems",
	"system_arrivals",
	"scan_positions",
	"conflicts",
	"bookmarks",
}

// createSchema creates all tables and indexes, then records the schema
// version if the database is fresh.
func (d *SQLiteDatabase) createSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?)`,
		schemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// validateSchema confirms every required table exists and the stored schema
// version is one this build understands.
func (d *SQLiteDatabase) validateSchema() error {
	for _, table := range requiredTables {
		var name string
		err := d.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			return fmt.Errorf("missing table %s: %w", table, err)
		}
	}

	var version string
	err := d.db.QueryRow(`SELECT value FROM schema_info WHERE key='version'`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %s, this build expects %s",
			ErrSchemaVersion, version, schemaVersion)
	}
	return nil
}
