package database

import (
	"database/sql"
	"fmt"

	"prospector/internal/normalize"
	"prospector/internal/reconcile"
)

// Maintenance operations are explicit, user-triggered repairs. Normal
// ingestion never deletes rows; these do, and they reuse the same reconcile
// rules as the ingestion path so both stay in agreement.

// completenessExpr scores a row by how many metadata fields it knows; used
// to pick the survivor among duplicates.
const completenessExpr = `((ring_class <> 'Unknown') + (distance_ls IS NOT NULL) +
	(inner_radius IS NOT NULL) + (outer_radius IS NOT NULL) +
	(ring_mass IS NOT NULL) + (density IS NOT NULL))`

// RemoveDuplicateHotspots deletes all but the most complete row per
// (system, ring, material) triple. The unique index makes duplicates
// impossible for rows written by this build; older imports could still carry
// them. Returns the number of rows deleted.
func (d *SQLiteDatabase) RemoveDuplicateHotspots() (int, error) {
	deleted := 0
	err := d.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM hotspots WHERE id NOT IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY system_name, ring_name, material
						ORDER BY ` + completenessExpr + ` DESC,
							source DESC, id
					) AS rn
					FROM hotspots
				) WHERE rn = 1
			)`)
		if err != nil {
			return fmt.Errorf("failed to remove duplicate hotspots: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = int(n)
		return nil
	})
	return deleted, err
}

// NormalizeNames rewrites malformed system/ring/material names to their
// canonical forms. When normalization makes a row collide with an existing
// key, the rows are merged under the reconcile rules and the redundant row
// removed. Returns the number of rows changed (rewritten or merged away).
func (d *SQLiteDatabase) NormalizeNames() (int, error) {
	changed := 0
	err := d.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT ` + hotspotColumns + ` FROM hotspots ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to scan hotspots for normalization: %w", err)
		}
		var recs []HotspotRecord
		for rows.Next() {
			rec, err := scanHotspot(rows)
			if err != nil {
				rows.Close()
				return err
			}
			recs = append(recs, *rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, rec := range recs {
			system := normalize.System(rec.System)
			ring := normalize.Ring(system, rec.Ring)
			material := normalize.Material(rec.Material)
			if system == rec.System && ring == rec.Ring && material == rec.Material {
				continue
			}

			target, err := getHotspotTx(tx, system, ring, material)
			if err != nil {
				return err
			}
			if target == nil || target.ID == rec.ID {
				_, err = tx.Exec(`UPDATE hotspots SET system_name = ?, ring_name = ?, material = ?,
					updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
					system, ring, material, rec.ID)
				if err != nil {
					return fmt.Errorf("failed to normalize hotspot %d: %w", rec.ID, err)
				}
				changed++
				continue
			}

			// Key collision: merge this row into the canonical one, then
			// drop it.
			merged, metaChanged := reconcile.MergeMetadata(target.Metadata, target.Source, rec.Metadata, rec.Source)
			count := target.Count
			if reconcile.DecideCount(target.Count, target.Source, rec.Count, rec.Source) == reconcile.CountOverwrite {
				count = rec.Count
			}
			if metaChanged || count != target.Count {
				_, err = tx.Exec(`UPDATE hotspots SET count = ?, ring_class = ?, distance_ls = ?,
					inner_radius = ?, outer_radius = ?, ring_mass = ?, density = ?,
					updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
					count, merged.Class.String(), nullable(merged.DistanceLS),
					nullable(merged.InnerRad), nullable(merged.OuterRad),
					nullable(merged.MassMT), nullable(merged.Density), target.ID)
				if err != nil {
					return fmt.Errorf("failed to merge hotspot %d into %d: %w", rec.ID, target.ID, err)
				}
			}
			if _, err = tx.Exec(`DELETE FROM hotspots WHERE id = ?`, rec.ID); err != nil {
				return fmt.Errorf("failed to delete merged hotspot %d: %w", rec.ID, err)
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// BackfillRingMetadata sweeps every ring and fills missing metadata fields
// from the ring's best-known values. Non-null values are never overwritten.
// Returns the number of rows that gained data.
func (d *SQLiteDatabase) BackfillRingMetadata() (int, error) {
	filled := 0
	err := d.withTx(func(tx *sql.Tx) error {
		ringRows, err := tx.Query(`SELECT DISTINCT system_name, ring_name FROM hotspots`)
		if err != nil {
			return fmt.Errorf("failed to list rings: %w", err)
		}
		type ringKey struct{ system, ring string }
		var rings []ringKey
		for ringRows.Next() {
			var k ringKey
			if err := ringRows.Scan(&k.system, &k.ring); err != nil {
				ringRows.Close()
				return err
			}
			rings = append(rings, k)
		}
		ringRows.Close()
		if err := ringRows.Err(); err != nil {
			return err
		}

		for _, k := range rings {
			n, err := propagateRingMetadataTx(tx, k.system, k.ring, "", reconcile.RingMetadata{})
			if err != nil {
				return err
			}
			filled += n
		}
		return nil
	})
	return filled, err
}
