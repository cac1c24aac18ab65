// Package watch tails the journal directory while the game is running,
// feeding appended lines through the normal ingestion path as they arrive.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"prospector/internal/ingest"
	"prospector/internal/journal"
	"prospector/internal/log"
)

// Watcher reacts to writes in the journal directory. The game appends in
// bursts, so events are debounced before triggering a read; ingestion itself
// stays single-threaded because Run is the only goroutine touching the
// runner.
type Watcher struct {
	runner   *ingest.Runner
	dir      string
	debounce time.Duration
	logger   zerolog.Logger

	// OnStats, when set, receives the stats of every incremental pass.
	OnStats func(*ingest.RunStats)
}

// New creates a watcher over dir using the given runner.
func New(runner *ingest.Runner, dir string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		runner:   runner,
		dir:      dir,
		debounce: debounce,
		logger:   log.With("watch"),
	}
}

// Run blocks watching the directory until ctx is canceled. It processes the
// newest journal file once at startup so a watcher started mid-session
// catches up before waiting for events.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create journal watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch journal dir %s: %w", w.dir, err)
	}

	w.logger.Info().Str("dir", w.dir).Msg("Watching journal directory")
	w.processNewest()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !journal.IsJournalFile(filepath.Base(event.Name)) {
				continue
			}
			if pending {
				if !timer.Stop() {
					<-timer.C
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			w.processNewest()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Journal watcher error")
		}
	}
}

// processNewest runs an incremental ingest pass over the newest journal
// file. Failures are logged and retried on the next event; the watcher
// itself never dies over one bad pass.
func (w *Watcher) processNewest() {
	path, err := journal.NewestFile(w.dir)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to find newest journal")
		return
	}
	if path == "" {
		return
	}

	stats, err := w.runner.ProcessFile(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("file", path).Msg("Incremental ingest failed")
		return
	}
	if stats.EventsIngested > 0 || stats.LinesSkipped > 0 {
		w.logger.Debug().Str("file", path).Int("ingested", stats.EventsIngested).
			Int("skipped", stats.LinesSkipped).Msg("Incremental ingest")
	}
	if w.OnStats != nil {
		w.OnStats(stats)
	}
}
