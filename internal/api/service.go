package api

import (
	"prospector/internal/database"
	"prospector/internal/reconcile"
	"prospector/internal/route"
)

// Service implements HotspotAPI over the store and the route planner.
type Service struct {
	db        database.Database
	jumpRange float64
}

// NewService creates the production HotspotAPI implementation.
func NewService(db database.Database, jumpRangeLY float64) *Service {
	return &Service{db: db, jumpRange: jumpRangeLY}
}

// Search implements HotspotAPI.
func (s *Service) Search(filter database.SearchFilter) ([]database.HotspotRecord, error) {
	return s.db.SearchHotspots(filter)
}

// RingMetadata implements HotspotAPI.
func (s *Service) RingMetadata(system, ring string) (reconcile.RingMetadata, error) {
	return s.db.GetRingMetadata(system, ring)
}

// RingMaterials implements HotspotAPI.
func (s *Service) RingMaterials(system, ring string) ([]database.HotspotRecord, error) {
	return s.db.RingMaterials(system, ring)
}

// ToggleBookmark implements HotspotAPI.
func (s *Service) ToggleBookmark(system, ring, material string) (bool, error) {
	marked, err := s.db.IsBookmarked(system, ring, material)
	if err != nil {
		return false, err
	}
	if marked {
		return false, s.db.RemoveBookmark(system, ring, material)
	}
	return true, s.db.AddBookmark(system, ring, material, "")
}

// IsBookmarked implements HotspotAPI.
func (s *Service) IsBookmarked(system, ring, material string) (bool, error) {
	return s.db.IsBookmarked(system, ring, material)
}

// Bookmarks implements HotspotAPI.
func (s *Service) Bookmarks() ([]database.Bookmark, error) {
	return s.db.ListBookmarks()
}

// Conflicts implements HotspotAPI.
func (s *Service) Conflicts(limit int) ([]database.Conflict, error) {
	return s.db.ListConflicts(limit)
}

// PlanRoute implements HotspotAPI. The planner snapshot is rebuilt per call;
// visited-system counts are small and routes are requested interactively.
func (s *Service) PlanRoute(from, to string) ([]route.Hop, error) {
	systems, err := s.db.AllVisitedSystems()
	if err != nil {
		return nil, err
	}
	return route.NewPlanner(systems, s.jumpRange).Plan(from, to)
}

// VisitedSystem implements HotspotAPI.
func (s *Service) VisitedSystem(system string) (*database.VisitedSystem, error) {
	return s.db.GetVisitedSystem(system)
}
