package database

import (
	"database/sql"
	"fmt"
)

// LoadScanPosition returns the stored bookmark for a journal file, or nil
// when the file has never been processed.
func (d *SQLiteDatabase) LoadScanPosition(path string) (*ScanPosition, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	var pos ScanPosition
	err := d.db.QueryRow(
		`SELECT file_path, first_line_hash, byte_offset, updated_at
		 FROM scan_positions WHERE file_path = ?`, path,
	).Scan(&pos.Path, &pos.FirstLineHash, &pos.Offset, &pos.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan position for %s: %w", path, err)
	}
	return &pos, nil
}

// SaveScanPosition records how far ingestion got into a journal file. Only
// written after a file's available lines were fully processed, so a stored
// bookmark always describes a consistent stopping point.
func (d *SQLiteDatabase) SaveScanPosition(pos ScanPosition) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO scan_positions (file_path, first_line_hash, byte_offset, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(file_path) DO UPDATE SET
				first_line_hash = excluded.first_line_hash,
				byte_offset = excluded.byte_offset,
				updated_at = CURRENT_TIMESTAMP`,
			pos.Path, pos.FirstLineHash, pos.Offset,
		)
		if err != nil {
			return fmt.Errorf("failed to save scan position for %s: %w", pos.Path, err)
		}
		return nil
	})
}
