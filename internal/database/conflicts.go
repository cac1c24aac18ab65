package database

import (
	"database/sql"
	"fmt"

	"prospector/internal/reconcile"
)

// insertConflictTx records a disputed observation for manual review. The
// disputed field itself is left untouched by the caller.
func insertConflictTx(tx *sql.Tx, c Conflict) error {
	_, err := tx.Exec(`
		INSERT INTO conflicts (run_id, system_name, ring_name, material, field,
			stored_value, observed_value, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.System, c.Ring, c.Material, c.Field, c.Stored, c.Observed, c.Source.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conflict for %s/%s/%s: %w", c.System, c.Ring, c.Material, err)
	}
	return nil
}

// ListConflicts returns recorded conflicts, newest first.
func (d *SQLiteDatabase) ListConflicts(limit int) ([]Conflict, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`
		SELECT id, run_id, system_name, ring_name, material, field,
			stored_value, observed_value, source, created_at
		FROM conflicts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		var (
			c      Conflict
			source string
		)
		err := rows.Scan(&c.ID, &c.RunID, &c.System, &c.Ring, &c.Material,
			&c.Field, &c.Stored, &c.Observed, &source, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		c.Source = reconcile.ParseProvenance(source)
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}
