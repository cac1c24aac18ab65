package database

import (
	"database/sql"
	"fmt"
)

// AddBookmark flags a hotspot for the user. Re-adding an existing bookmark
// updates its note.
func (d *SQLiteDatabase) AddBookmark(system, ring, material, note string) error {
	if system == "" || ring == "" || material == "" {
		return fmt.Errorf("incomplete bookmark key %q/%q/%q", system, ring, material)
	}
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO bookmarks (system_name, ring_name, material, note)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(system_name, ring_name, material) DO UPDATE SET note = excluded.note`,
			system, ring, material, note,
		)
		if err != nil {
			return fmt.Errorf("failed to add bookmark %s/%s/%s: %w", system, ring, material, err)
		}
		return nil
	})
}

// RemoveBookmark removes a bookmark; removing a missing one is not an error.
func (d *SQLiteDatabase) RemoveBookmark(system, ring, material string) error {
	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM bookmarks WHERE system_name = ? AND ring_name = ? AND material = ?`,
			system, ring, material,
		)
		if err != nil {
			return fmt.Errorf("failed to remove bookmark %s/%s/%s: %w", system, ring, material, err)
		}
		return nil
	})
}

// ListBookmarks returns all bookmarks, newest first.
func (d *SQLiteDatabase) ListBookmarks() ([]Bookmark, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	rows, err := d.db.Query(`
		SELECT id, system_name, ring_name, material, note, created_at
		FROM bookmarks ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.System, &b.Ring, &b.Material, &b.Note, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// IsBookmarked reports whether a hotspot is bookmarked.
func (d *SQLiteDatabase) IsBookmarked(system, ring, material string) (bool, error) {
	if !d.dbOpen {
		return false, ErrNotOpen
	}
	var id int64
	err := d.db.QueryRow(
		`SELECT id FROM bookmarks WHERE system_name = ? AND ring_name = ? AND material = ?`,
		system, ring, material,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark %s/%s/%s: %w", system, ring, material, err)
	}
	return true, nil
}
