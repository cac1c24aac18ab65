// Package api defines the narrow surface the TUI talks to. The UI never
// touches the store or planner directly; everything goes through HotspotAPI
// so the interface stays mockable in UI tests.
package api

import (
	"prospector/internal/database"
	"prospector/internal/reconcile"
	"prospector/internal/route"
)

// HotspotAPI is the read/annotate surface for the UI layer.
type HotspotAPI interface {
	// Search returns hotspots matching the filter, best counts first.
	Search(filter database.SearchFilter) ([]database.HotspotRecord, error)

	// RingMetadata returns the best-known metadata for a ring.
	RingMetadata(system, ring string) (reconcile.RingMetadata, error)

	// RingMaterials returns every material stored for a ring.
	RingMaterials(system, ring string) ([]database.HotspotRecord, error)

	// ToggleBookmark flips a hotspot's bookmark and reports the new state.
	ToggleBookmark(system, ring, material string) (bool, error)

	// IsBookmarked reports whether a hotspot is bookmarked.
	IsBookmarked(system, ring, material string) (bool, error)

	// Bookmarks lists the user's bookmarks, newest first.
	Bookmarks() ([]database.Bookmark, error)

	// Conflicts lists recorded reconciliation conflicts, newest first.
	Conflicts(limit int) ([]database.Conflict, error)

	// PlanRoute plans jumps between two visited systems.
	PlanRoute(from, to string) ([]route.Hop, error)

	// VisitedSystem returns visit statistics, or nil if never visited.
	VisitedSystem(system string) (*database.VisitedSystem, error)
}
