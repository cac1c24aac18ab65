package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"

	"prospector/internal/reconcile"
)

// Column names shared by the upsert and maintenance paths.
const (
	colCount     = "count"
	colRingClass = "ring_class"
	colDistance  = "distance_ls"
	colInnerRad  = "inner_radius"
	colOuterRad  = "outer_radius"
	colRingMass  = "ring_mass"
	colDensity   = "density"
	colSource    = "source"
	colScannedAt = "scanned_at"
	colUpdatedAt = "updated_at"
)

const hotspotColumns = `id, system_name, ring_name, material, count, ring_class,
	distance_ls, inner_radius, outer_radius, ring_mass, density,
	source, scanned_at, updated_at`

// UpsertHotspot reconciles one observation into the store.
//
// Insert: metadata comes from the observation, backfilled per-field from any
// sibling material already stored for the ring. Update: the count is
// immutable unless the observation's provenance outranks the stored one
// (disagreements are recorded in the conflicts table), and metadata merges
// field-level non-destructively. Either way, ring metadata the observation
// teaches us is propagated to sibling materials still missing it.
func (d *SQLiteDatabase) UpsertHotspot(obs reconcile.Observation, runID string) (UpsertResult, error) {
	if obs.System == "" || obs.Ring == "" || obs.Material == "" {
		return UpsertResult{}, fmt.Errorf("incomplete hotspot key %q/%q/%q", obs.System, obs.Ring, obs.Material)
	}
	if obs.Count <= 0 {
		return UpsertResult{}, fmt.Errorf("invalid hotspot count %d for %s/%s/%s", obs.Count, obs.System, obs.Ring, obs.Material)
	}

	var result UpsertResult
	err := d.withTx(func(tx *sql.Tx) error {
		existing, err := getHotspotTx(tx, obs.System, obs.Ring, obs.Material)
		if err != nil {
			return err
		}

		var ringMeta reconcile.RingMetadata
		if existing == nil {
			ringMeta, err = d.insertHotspotTx(tx, obs)
			result.Action = ActionInserted
		} else {
			ringMeta, result.Action, err = d.updateHotspotTx(tx, existing, obs, runID)
		}
		if err != nil {
			return err
		}

		backfilled, err := propagateRingMetadataTx(tx, obs.System, obs.Ring, obs.Material, ringMeta)
		if err != nil {
			return err
		}
		result.SiblingsBackfilled = backfilled
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// insertHotspotTx inserts a fresh record, borrowing missing metadata from
// sibling materials of the same ring. Returns the metadata as stored.
func (d *SQLiteDatabase) insertHotspotTx(tx *sql.Tx, obs reconcile.Observation) (reconcile.RingMetadata, error) {
	siblings, err := ringMaterialsTx(tx, obs.System, obs.Ring)
	if err != nil {
		return reconcile.RingMetadata{}, err
	}
	readings := make([]reconcile.RingMetadata, 0, len(siblings)+1)
	readings = append(readings, obs.Metadata)
	for _, sib := range siblings {
		readings = append(readings, sib.Metadata)
	}
	meta := reconcile.BestKnown(readings...)

	_, err = tx.Exec(`
		INSERT INTO hotspots (system_name, ring_name, material, count, ring_class,
			distance_ls, inner_radius, outer_radius, ring_mass, density,
			source, scanned_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		obs.System, obs.Ring, obs.Material, obs.Count, meta.Class.String(),
		nullable(meta.DistanceLS), nullable(meta.InnerRad), nullable(meta.OuterRad),
		nullable(meta.MassMT), nullable(meta.Density),
		obs.Source.String(), obs.ScannedAt.UTC(),
	)
	if err != nil {
		return reconcile.RingMetadata{}, fmt.Errorf("failed to insert hotspot %s/%s/%s: %w",
			obs.System, obs.Ring, obs.Material, err)
	}
	return meta, nil
}

// updateHotspotTx applies the provenance-gated count rule and the
// non-destructive metadata merge to an existing record. Returns the merged
// ring metadata (for sibling propagation) and the action taken.
func (d *SQLiteDatabase) updateHotspotTx(tx *sql.Tx, existing *HotspotRecord, obs reconcile.Observation, runID string) (reconcile.RingMetadata, UpsertAction, error) {
	updates := map[string]interface{}{}
	action := ActionUnchanged

	merged, metaChanged := reconcile.MergeMetadata(existing.Metadata, existing.Source, obs.Metadata, obs.Source)
	if metaChanged {
		updates[colRingClass] = merged.Class.String()
		updates[colDistance] = nullable(merged.DistanceLS)
		updates[colInnerRad] = nullable(merged.InnerRad)
		updates[colOuterRad] = nullable(merged.OuterRad)
		updates[colRingMass] = nullable(merged.MassMT)
		updates[colDensity] = nullable(merged.Density)
		action = ActionUpdated
	}

	switch reconcile.DecideCount(existing.Count, existing.Source, obs.Count, obs.Source) {
	case reconcile.CountOverwrite:
		updates[colCount] = obs.Count
		action = ActionUpdated
	case reconcile.CountConflict:
		err := insertConflictTx(tx, Conflict{
			RunID:    runID,
			System:   obs.System,
			Ring:     obs.Ring,
			Material: obs.Material,
			Field:    colCount,
			Stored:   strconv.Itoa(existing.Count),
			Observed: strconv.Itoa(obs.Count),
			Source:   obs.Source,
		})
		if err != nil {
			return reconcile.RingMetadata{}, action, err
		}
		action = ActionConflict
	}

	// A live scan confirming imported data upgrades the row's provenance so
	// later imports cannot rewrite it.
	if obs.Source.Outranks(existing.Source) {
		updates[colSource] = obs.Source.String()
	}

	if len(updates) > 0 {
		if obs.ScannedAt.After(existing.ScannedAt) {
			updates[colScannedAt] = obs.ScannedAt.UTC()
		}
		updates[colUpdatedAt] = time.Now().UTC()

		query, args, err := squirrel.Update("hotspots").
			SetMap(updates).
			Where(squirrel.Eq{"id": existing.ID}).
			ToSql()
		if err != nil {
			return reconcile.RingMetadata{}, action, fmt.Errorf("failed to build hotspot update: %w", err)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return reconcile.RingMetadata{}, action, fmt.Errorf("failed to update hotspot %s/%s/%s: %w",
				obs.System, obs.Ring, obs.Material, err)
		}
		if action == ActionUnchanged {
			action = ActionUpdated
		}
	}

	return merged, action, nil
}

// propagateRingMetadataTx copies the ring's best-known metadata onto sibling
// materials that are still missing fields. A sibling's own non-null value is
// never overwritten. Returns how many siblings changed.
func propagateRingMetadataTx(tx *sql.Tx, system, ring, exceptMaterial string, learned reconcile.RingMetadata) (int, error) {
	siblings, err := ringMaterialsTx(tx, system, ring)
	if err != nil {
		return 0, err
	}

	readings := make([]reconcile.RingMetadata, 0, len(siblings)+1)
	readings = append(readings, learned)
	for _, sib := range siblings {
		readings = append(readings, sib.Metadata)
	}
	best := reconcile.BestKnown(readings...)

	backfilled := 0
	for _, sib := range siblings {
		if sib.Material == exceptMaterial {
			continue
		}
		// Same-provenance merge: fills nulls only.
		merged, changed := reconcile.MergeMetadata(sib.Metadata, sib.Source, best, sib.Source)
		if !changed {
			continue
		}
		_, err := tx.Exec(`
			UPDATE hotspots SET ring_class = ?, distance_ls = ?, inner_radius = ?,
				outer_radius = ?, ring_mass = ?, density = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			merged.Class.String(), nullable(merged.DistanceLS), nullable(merged.InnerRad),
			nullable(merged.OuterRad), nullable(merged.MassMT), nullable(merged.Density),
			sib.ID,
		)
		if err != nil {
			return backfilled, fmt.Errorf("failed to backfill %s/%s/%s: %w", system, ring, sib.Material, err)
		}
		backfilled++
	}
	return backfilled, nil
}

// PropagateRingMetadata pushes newly-learned ring metadata onto every stored
// material of the ring that is still missing it. Called when a ring scan
// arrives for a ring whose hotspots are already in the store, so metadata
// reaches them without waiting for another hotspot scan.
func (d *SQLiteDatabase) PropagateRingMetadata(system, ring string, learned reconcile.RingMetadata) (int, error) {
	backfilled := 0
	err := d.withTx(func(tx *sql.Tx) error {
		var err error
		backfilled, err = propagateRingMetadataTx(tx, system, ring, "", learned)
		return err
	})
	return backfilled, err
}

// GetHotspot loads one record by key, or nil when absent.
func (d *SQLiteDatabase) GetHotspot(system, ring, material string) (*HotspotRecord, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	var rec *HotspotRecord
	err := d.withTx(func(tx *sql.Tx) error {
		var err error
		rec, err = getHotspotTx(tx, system, ring, material)
		return err
	})
	return rec, err
}

// RingMaterials returns every material stored for a ring.
func (d *SQLiteDatabase) RingMaterials(system, ring string) ([]HotspotRecord, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}
	var recs []HotspotRecord
	err := d.withTx(func(tx *sql.Tx) error {
		var err error
		recs, err = ringMaterialsTx(tx, system, ring)
		return err
	})
	return recs, err
}

// GetRingMetadata aggregates the most complete known value per field across
// every material stored for the ring. It gives the same answer whether or
// not the write-side backfill has physically run.
func (d *SQLiteDatabase) GetRingMetadata(system, ring string) (reconcile.RingMetadata, error) {
	recs, err := d.RingMaterials(system, ring)
	if err != nil {
		return reconcile.RingMetadata{}, err
	}
	readings := make([]reconcile.RingMetadata, 0, len(recs))
	for _, rec := range recs {
		readings = append(readings, rec.Metadata)
	}
	return reconcile.BestKnown(readings...), nil
}

// SearchHotspots returns records matching the filter, best counts first.
func (d *SQLiteDatabase) SearchHotspots(filter SearchFilter) ([]HotspotRecord, error) {
	if !d.dbOpen {
		return nil, ErrNotOpen
	}

	qb := squirrel.Select(hotspotColumns).From("hotspots").
		OrderBy("count DESC, system_name, ring_name, material")
	if filter.System != "" {
		qb = qb.Where(squirrel.Like{"system_name": filter.System + "%"})
	}
	if filter.Material != "" {
		qb = qb.Where(squirrel.Eq{"material": filter.Material})
	}
	if filter.RingClass != reconcile.RingUnknown {
		qb = qb.Where(squirrel.Eq{"ring_class": filter.RingClass.String()})
	}
	if filter.MinCount > 0 {
		qb = qb.Where(squirrel.GtOrEq{"count": filter.MinCount})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build hotspot search: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search hotspots: %w", err)
	}
	defer rows.Close()

	var recs []HotspotRecord
	for rows.Next() {
		rec, err := scanHotspot(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHotspot(row rowScanner) (*HotspotRecord, error) {
	var (
		rec        HotspotRecord
		class      string
		source     string
		distance   sql.NullFloat64
		innerRad   sql.NullFloat64
		outerRad   sql.NullFloat64
		mass       sql.NullFloat64
		density    sql.NullFloat64
	)
	err := row.Scan(
		&rec.ID, &rec.System, &rec.Ring, &rec.Material, &rec.Count, &class,
		&distance, &innerRad, &outerRad, &mass, &density,
		&source, &rec.ScannedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Metadata = reconcile.RingMetadata{
		Class:      reconcile.ParseRingClass(class),
		DistanceLS: fromNull(distance),
		InnerRad:   fromNull(innerRad),
		OuterRad:   fromNull(outerRad),
		MassMT:     fromNull(mass),
		Density:    fromNull(density),
	}
	rec.Source = reconcile.ParseProvenance(source)
	return &rec, nil
}

func getHotspotTx(tx *sql.Tx, system, ring, material string) (*HotspotRecord, error) {
	row := tx.QueryRow(`SELECT `+hotspotColumns+` FROM hotspots
		WHERE system_name = ? AND ring_name = ? AND material = ?`,
		system, ring, material)
	rec, err := scanHotspot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hotspot %s/%s/%s: %w", system, ring, material, err)
	}
	return rec, nil
}

func ringMaterialsTx(tx *sql.Tx, system, ring string) ([]HotspotRecord, error) {
	rows, err := tx.Query(`SELECT `+hotspotColumns+` FROM hotspots
		WHERE system_name = ? AND ring_name = ? ORDER BY material`,
		system, ring)
	if err != nil {
		return nil, fmt.Errorf("failed to load ring %s/%s: %w", system, ring, err)
	}
	defer rows.Close()

	var recs []HotspotRecord
	for rows.Next() {
		rec, err := scanHotspot(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
