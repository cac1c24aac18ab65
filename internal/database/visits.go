package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordArrival registers one arrival event. Arrivals are deduplicated by
// exact timestamp, so replaying an overlapping journal window neither
// inflates visit counts nor moves first/last visit times incorrectly.
func (d *SQLiteDatabase) RecordArrival(system string, hasPos bool, x, y, z float64, at time.Time) error {
	if system == "" {
		return fmt.Errorf("arrival without system name")
	}
	at = at.UTC()

	return d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO system_arrivals (system_name, arrived_at) VALUES (?, ?)`,
			system, at,
		)
		if err != nil {
			return fmt.Errorf("failed to record arrival in %s: %w", system, err)
		}
		inserted, _ := res.RowsAffected()

		_, err = tx.Exec(`
			INSERT INTO visited_systems (system_name, first_visit, last_visit, visit_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(system_name) DO UPDATE SET
				first_visit = MIN(first_visit, excluded.first_visit),
				last_visit = MAX(last_visit, excluded.last_visit),
				visit_count = visit_count + ?`,
			system, at, at, inserted, inserted,
		)
		if err != nil {
			return fmt.Errorf("failed to update visited system %s: %w", system, err)
		}

		if hasPos {
			// Coordinates never change for a system; first writer wins.
			_, err = tx.Exec(`UPDATE visited_systems SET x = ?, y = ?, z = ?
				WHERE system_name = ? AND x IS NULL`,
				x, y, z, system)
			if err != nil {
				return fmt.Errorf("failed to set coordinates for %s: %w", system, err)
			}
		}
		return nil
	})
}

const visitedColumns = `system_name, x, y, z, first_visit, last_visit, visit_count`

func scanVisited(row rowScanner) (*VisitedSystem, error) {
	var (
		v       VisitedSystem
		x, y, z sql.NullFloat64
	)
	if err := row.Scan(&v.System, &x, &y, &z, &v.FirstVisit, &v.LastVisit, &v.VisitCount); err != nil {
		return nil, err
	}
	if x.Valid && y.Valid && z.Valid {
		v.HasPos = true
		v.X, v.Y, v.Z = x.Float64, y.Float64, z.Float64
	}
	return &v, nil
}

// GetVisitedSystem loads one visited system, or nil when never visited.
func (d *SQLiteDatabase) GetVisitedSystem(system string) (*VisitedSystem, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	row := d.db.QueryRow(`SELECT `+visitedColumns+` FROM visited_systems WHERE system_name = ?`, system)
	v, err := scanVisited(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load visited system %s: %w", system, err)
	}
	return v, nil
}

// AllVisitedSystems returns every visited system, most recently visited
// first.
func (d *SQLiteDatabase) AllVisitedSystems() ([]VisitedSystem, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	rows, err := d.db.Query(`SELECT ` + visitedColumns + ` FROM visited_systems ORDER BY last_visit DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list visited systems: %w", err)
	}
	defer rows.Close()

	var systems []VisitedSystem
	for rows.Next() {
		v, err := scanVisited(rows)
		if err != nil {
			return nil, err
		}
		systems = append(systems, *v)
	}
	return systems, rows.Err()
}

// RecomputeVisitCounts rebuilds every visit counter from the deduplicated
// arrivals table and returns how many systems changed. This is the repair
// counterpart of RecordArrival for databases written by older builds that
// counted raw events.
func (d *SQLiteDatabase) RecomputeVisitCounts() (int, error) {
	changed := 0
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE visited_systems SET visit_count = (
				SELECT COUNT(*) FROM system_arrivals a
				WHERE a.system_name = visited_systems.system_name
			)
			WHERE visit_count <> (
				SELECT COUNT(*) FROM system_arrivals a
				WHERE a.system_name = visited_systems.system_name
			)`)
		if err != nil {
			return fmt.Errorf("failed to recompute visit counts: %w", err)
		}
		n, _ := res.RowsAffected()
		changed = int(n)
		return nil
	})
	return changed, err
}
