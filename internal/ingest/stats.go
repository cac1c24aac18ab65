package ingest

import "time"

// RunStats is the only output a run propagates. Per-line problems are
// counted here, never raised; a single malformed line can never abort a run.
type RunStats struct {
	RunID          string
	Started        time.Time
	Finished       time.Time
	FilesProcessed int
	// FilesFailed counts journal files abandoned whole (unreadable, bookmark
	// write failed). Distinct from WritesFailed, which is per record.
	FilesFailed int
	// EventsIngested counts hotspot and arrival records applied to the store.
	EventsIngested int
	// LinesSkipped counts lines that failed to decode or classify.
	LinesSkipped int
	// Conflicts counts observations that disagreed with stored data without
	// the provenance to change it; each is recorded for review.
	Conflicts int
	// WritesFailed counts records abandoned after exhausting lock retries.
	WritesFailed int
	// SiblingsBackfilled counts ring-metadata fills on sibling materials.
	SiblingsBackfilled int
}

// timeRound keeps reported durations readable.
const timeRound = 10 * time.Millisecond

func nowUTC() time.Time { return time.Now().UTC() }

// Duration returns the wall-clock span of the run.
func (s *RunStats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
