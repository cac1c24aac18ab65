package database

import (
	"time"

	"prospector/internal/reconcile"
)

// HotspotRecord is one stored (system, ring, material) observation plus the
// ring-level metadata it currently carries. The triple is unique in the
// store; metadata is logically per-ring and kept consistent across sibling
// materials by the upsert backfill.
type HotspotRecord struct {
	ID        int64
	System    string
	Ring      string
	Material  string
	Count     int
	Metadata  reconcile.RingMetadata
	Source    reconcile.Provenance
	ScannedAt time.Time
	UpdatedAt time.Time
}

// VisitedSystem is a system the player has arrived in at least once.
type VisitedSystem struct {
	System     string
	HasPos     bool
	X, Y, Z    float64
	FirstVisit time.Time
	LastVisit  time.Time
	// VisitCount is the number of distinct arrival timestamps, not raw
	// arrival events; overlapping journal re-reads do not inflate it.
	VisitCount int
}

// Conflict is a disputed observation recorded for manual review instead of
// being applied.
type Conflict struct {
	ID        int64
	RunID     string
	System    string
	Ring      string
	Material  string
	Field     string
	Stored    string
	Observed  string
	Source    reconcile.Provenance
	CreatedAt time.Time
}

// Bookmark is a user-flagged hotspot.
type Bookmark struct {
	ID        int64
	System    string
	Ring      string
	Material  string
	Note      string
	CreatedAt time.Time
}

// ScanPosition remembers how far into a journal file ingestion has
// progressed. FirstLineHash detects rotation or truncation: when it no
// longer matches the file on disk, Offset is stale and the file is rescanned
// from the start.
type ScanPosition struct {
	Path          string
	FirstLineHash string
	Offset        int64
	UpdatedAt     time.Time
}

// UpsertAction describes what an upsert did.
type UpsertAction int

const (
	ActionInserted UpsertAction = iota
	ActionUpdated
	ActionUnchanged
	ActionConflict
)

// String returns a short name for logging.
func (a UpsertAction) String() string {
	switch a {
	case ActionInserted:
		return "inserted"
	case ActionUpdated:
		return "updated"
	case ActionConflict:
		return "conflict"
	default:
		return "unchanged"
	}
}

// UpsertResult reports the outcome of one reconciling upsert.
type UpsertResult struct {
	Action UpsertAction
	// SiblingsBackfilled counts other materials in the same ring that
	// received missing metadata during propagation.
	SiblingsBackfilled int
}

// SearchFilter narrows hotspot queries. Zero values mean "any".
type SearchFilter struct {
	System    string
	Material  string
	RingClass reconcile.RingClass
	// MinCount drops hotspots with fewer overlapping signals.
	MinCount int
	Limit    int
}
