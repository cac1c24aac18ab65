// Package ingest drives journal ingestion: it walks journal files in
// chronological order, classifies their lines, enriches hotspot observations
// from the session metadata cache and reconciles them into the store.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prospector/internal/database"
	"prospector/internal/journal"
	"prospector/internal/log"
	"prospector/internal/reconcile"
)

// Runner performs one synchronous ingestion pass. It is single-threaded by
// design: files must be processed oldest first so the metadata cache sees
// ring scans before the hotspot scans they enrich. It is not safe for
// concurrent use; create one Runner per run.
type Runner struct {
	db     database.Database
	cache  *MetadataCache
	logger zerolog.Logger

	// currentSystem is the location context carried across lines and files,
	// updated by every arrival event.
	currentSystem string
}

// NewRunner creates a runner over an open store.
func NewRunner(db database.Database) *Runner {
	return &Runner{
		db:     db,
		cache:  NewMetadataCache(),
		logger: log.With("ingest"),
	}
}

// Run ingests every journal file in dir, resuming each file from its stored
// scan position. Cancellation is honored between files only, so a bookmark
// always describes a fully processed file. The returned stats are valid even
// when an error is returned.
func (r *Runner) Run(ctx context.Context, dir string) (*RunStats, error) {
	stats := r.newStats()
	defer stats.finish()

	files, err := journal.ListFiles(dir)
	if err != nil {
		return stats.RunStats, err
	}

	r.logger.Info().Str("run_id", stats.RunID).Int("files", len(files)).Str("dir", dir).
		Msg("Starting ingestion run")

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats.RunStats, err
		}
		if err := r.processFile(path, stats); err != nil {
			// A file-level failure (unreadable, bookmark write failed) is
			// contained; remaining files still get their chance.
			r.logger.Error().Err(err).Str("file", path).Msg("Failed to process journal file")
			stats.FilesFailed++
			continue
		}
		stats.FilesProcessed++
	}

	r.logger.Info().
		Str("run_id", stats.RunID).
		Int("files", stats.FilesProcessed).
		Int("ingested", stats.EventsIngested).
		Int("skipped", stats.LinesSkipped).
		Int("conflicts", stats.Conflicts).
		Int("failed_writes", stats.WritesFailed).
		Int("failed_files", stats.FilesFailed).
		Dur("duration", stats.Duration()).
		Msg("Ingestion run complete")

	return stats.RunStats, nil
}

// ProcessFile ingests a single journal file from its stored scan position.
// Used by the live watcher for the newest file.
func (r *Runner) ProcessFile(path string) (*RunStats, error) {
	stats := r.newStats()
	defer stats.finish()

	if err := r.processFile(path, stats); err != nil {
		return stats.RunStats, err
	}
	stats.FilesProcessed++
	return stats.RunStats, nil
}

func (r *Runner) processFile(path string, stats *runState) error {
	hash := journal.FirstLineHash(path)

	offset := int64(0)
	pos, err := r.db.LoadScanPosition(path)
	if err != nil {
		return err
	}
	if pos != nil {
		if pos.FirstLineHash == hash {
			offset = pos.Offset
		} else {
			// Rotated or truncated in place; the stored offset is for a
			// different file's contents.
			r.logger.Warn().Str("file", path).Msg("Journal file changed identity, rescanning from start")
		}
	}

	res, err := journal.ReadLines(path, offset)
	if err != nil {
		return err
	}
	if len(res.Lines) == 0 && res.Offset == offset {
		return nil
	}

	for _, line := range res.Lines {
		events, err := journal.Classify(line, r.currentSystem)
		if err != nil {
			stats.LinesSkipped++
			r.logger.Debug().Err(err).Str("file", path).Msg("Skipping journal line")
			continue
		}
		for _, ev := range events {
			r.apply(ev, stats)
		}
	}

	// The bookmark is written once the file's available lines are all
	// handled; a partial trailing line was not consumed and stays ahead of
	// the offset.
	return r.db.SaveScanPosition(database.ScanPosition{
		Path:          path,
		FirstLineHash: hash,
		Offset:        res.Offset,
	})
}

// apply dispatches one classified event. Storage errors are counted, not
// returned: one failed record never stops a run.
func (r *Runner) apply(ev journal.Event, stats *runState) {
	switch e := ev.(type) {
	case journal.ArrivalEvent:
		r.currentSystem = e.System
		if err := r.db.RecordArrival(e.System, e.HasPos, e.X, e.Y, e.Z, e.Timestamp); err != nil {
			stats.WritesFailed++
			r.logger.Warn().Err(err).Str("system", e.System).Msg("Failed to record arrival")
			return
		}
		stats.EventsIngested++

	case journal.RingScanEvent:
		meta := reconcile.RingMetadata{
			Class:      reconcile.ParseRingClass(e.Class),
			DistanceLS: e.DistanceLS,
			InnerRad:   e.InnerRad,
			OuterRad:   e.OuterRad,
			MassMT:     e.MassMT,
		}
		r.cache.Record(e.System, e.Ring, meta)

		// Hotspots already stored for this ring can take the new metadata
		// immediately.
		cached, _ := r.cache.Lookup(e.System, e.Ring)
		n, err := r.db.PropagateRingMetadata(e.System, e.Ring, cached)
		if err != nil {
			stats.WritesFailed++
			r.logger.Warn().Err(err).Str("system", e.System).Str("ring", e.Ring).
				Msg("Failed to propagate ring metadata")
			return
		}
		stats.SiblingsBackfilled += n

	case journal.HotspotScanEvent:
		meta := r.ringMetadata(e.System, e.Ring)
		for _, sig := range e.Signals {
			result, err := r.db.UpsertHotspot(reconcile.Observation{
				System:    e.System,
				Ring:      e.Ring,
				Material:  sig.Material,
				Count:     sig.Count,
				Metadata:  meta,
				Source:    reconcile.SourceGameLog,
				ScannedAt: e.Timestamp,
			}, stats.RunID)
			if err != nil {
				stats.WritesFailed++
				r.logger.Warn().Err(err).Str("system", e.System).Str("ring", e.Ring).
					Str("material", sig.Material).Msg("Failed to upsert hotspot")
				continue
			}
			stats.EventsIngested++
			stats.SiblingsBackfilled += result.SiblingsBackfilled
			if result.Action == database.ActionConflict {
				stats.Conflicts++
			}
		}
	}
}

// ringMetadata resolves the best metadata for a ring: the session cache
// first, then previously-enriched store rows for the same ring, else empty.
func (r *Runner) ringMetadata(system, ring string) reconcile.RingMetadata {
	if meta, ok := r.cache.Lookup(system, ring); ok {
		return meta
	}
	meta, err := r.db.GetRingMetadata(system, ring)
	if err != nil {
		r.logger.Debug().Err(err).Str("system", system).Str("ring", ring).
			Msg("Failed to seed metadata from store")
		return reconcile.RingMetadata{}
	}
	if !meta.IsEmpty() {
		r.cache.Record(system, ring, meta)
	}
	return meta
}

// CurrentSystem returns the last arrival seen by this runner, or "" before
// any arrival event.
func (r *Runner) CurrentSystem() string {
	return r.currentSystem
}

// runState wraps RunStats while a run is in flight.
type runState struct {
	*RunStats
}

func (r *Runner) newStats() *runState {
	return &runState{RunStats: &RunStats{
		RunID:   uuid.NewString(),
		Started: nowUTC(),
	}}
}

func (s *runState) finish() {
	s.Finished = nowUTC()
}

// Summary renders stats for the one-line end-of-run report.
func Summary(s *RunStats) string {
	return fmt.Sprintf("files=%d failed_files=%d ingested=%d skipped=%d conflicts=%d failed_writes=%d backfilled=%d in %s",
		s.FilesProcessed, s.FilesFailed, s.EventsIngested, s.LinesSkipped,
		s.Conflicts, s.WritesFailed, s.SiblingsBackfilled, s.Duration().Round(timeRound))
}
