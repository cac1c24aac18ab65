package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/database"
	"prospector/internal/reconcile"
)

func openTestDB(t *testing.T) database.Database {
	t.Helper()
	db := database.New()
	require.NoError(t, db.Open(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { db.Close() })
	return db
}

func writeJournal(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const (
	jumpDelkar = `{"timestamp":"2024-03-01T18:22:05Z","event":"FSDJump","StarSystem":"Delkar","StarPos":[-34.84375,29.0,-4.90625]}`
	scanRing = `{"timestamp":"2024-03-01T18:25:00Z","event":"Scan","StarSystem":"Delkar","BodyName":"Delkar 7",` +
		`"DistanceFromArrivalLS":1522.3,"Rings":[{"Name":"Delkar 7 A Ring","RingClass":"eRingClass_Icy",` +
		`"MassMT":3.3e10,"InnerRad":1.2e8,"OuterRad":2.4e8}]}`
	saaPlatinum = `{"timestamp":"2024-03-01T18:30:00Z","event":"SAASignalsFound","StarSystem":"Delkar",` +
		`"BodyName":"Delkar 7 A Ring","Signals":[{"Type":"Platinum","Count":3}]}`
	saaOsmium = `{"timestamp":"2024-03-02T09:15:00Z","event":"SAASignalsFound","StarSystem":"Delkar",` +
		`"BodyName":"Delkar 7 A Ring","Signals":[{"Type":"Osmium","Count":1}]}`
	jumpDelkar2 = `{"timestamp":"2024-03-02T09:10:00Z","event":"FSDJump","StarSystem":"Delkar","StarPos":[-34.84375,29.0,-4.90625]}`
)

func TestRunEnrichesHotspotsFromEarlierRingScan(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	// The ring scan and the first hotspot scan happen in one session; a
	// second hotspot is found the next day in a new journal file.
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar, scanRing, saaPlatinum)
	writeJournal(t, dir, "Journal.2024-03-02T091000.01.log", saaOsmium)

	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 3, stats.EventsIngested) // arrival + two hotspots
	assert.Equal(t, 0, stats.LinesSkipped)
	assert.Equal(t, 0, stats.Conflicts)

	// Both materials carry the full ring metadata, including the one scanned
	// in the later file that never saw a ring scan itself.
	for _, material := range []string{"Platinum", "Osmium"} {
		rec, err := db.GetHotspot("Delkar", "7 A Ring", material)
		require.NoError(t, err)
		require.NotNil(t, rec, material)
		assert.True(t, rec.Metadata.IsComplete(), material)
		assert.Equal(t, reconcile.RingIcy, rec.Metadata.Class)
		assert.Equal(t, 1522.3, *rec.Metadata.DistanceLS)
		assert.Equal(t, reconcile.SourceGameLog, rec.Source)
	}

	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count)

	visit, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	require.NotNil(t, visit)
	assert.Equal(t, 1, visit.VisitCount)
	assert.True(t, visit.HasPos)
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar, scanRing, saaPlatinum)

	_, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)

	// A fresh runner over the same directory: scan positions skip everything.
	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EventsIngested)
	assert.Equal(t, 0, stats.Conflicts)

	visit, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	assert.Equal(t, 1, visit.VisitCount)

	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count)
}

func TestRunResumesAppendedLines(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	name := "Journal.2024-03-01T182205.01.log"
	writeJournal(t, dir, name, jumpDelkar, scanRing)

	runner := NewRunner(db)
	_, err := runner.Run(context.Background(), dir)
	require.NoError(t, err)

	// The game appends the hotspot scan later; the same runner picks it up
	// from the stored offset, the way the live watcher does.
	writeJournal(t, dir, name, jumpDelkar, scanRing, saaPlatinum)

	stats, err := runner.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EventsIngested)

	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Metadata.IsComplete())
}

func TestRunRescansRotatedFile(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	name := "Journal.2024-03-01T182205.01.log"
	writeJournal(t, dir, name, jumpDelkar)

	_, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)

	// Same path, different contents: the first-line fingerprint no longer
	// matches and the stored offset is discarded.
	writeJournal(t, dir, name, scanRing, saaPlatinum)

	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EventsIngested)

	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestRunContainsMalformedLines(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log",
		jumpDelkar,
		`{"timestamp":"2024-03-01T18:25:00Z","event":"Scan","BodyName":`, // truncated
		saaPlatinum,
	)

	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LinesSkipped)
	assert.Equal(t, 2, stats.EventsIngested)

	// The records around the bad line all landed.
	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestRunCountsFailedFilesSeparately(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar, scanRing, saaPlatinum)

	// A journal entry whose target is gone behaves like an unreadable file.
	require.NoError(t, os.Symlink(
		filepath.Join(dir, "gone"),
		filepath.Join(dir, "Journal.2024-02-28T120000.01.log")))

	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesProcessed)
	// The file-level failure never leaks into the per-record write counter.
	assert.Equal(t, 0, stats.WritesFailed)
	assert.Equal(t, 2, stats.EventsIngested) // arrival + hotspot
}

func TestRunHonorsCancellation(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(db).Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerTracksCurrentSystem(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar)

	runner := NewRunner(db)
	assert.Equal(t, "", runner.CurrentSystem())

	_, err := runner.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "Delkar", runner.CurrentSystem())
}

func TestRingScanBackfillsStoredHotspots(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	// Hotspots land first (no ring scan yet), the composition scan follows
	// in a later session.
	writeJournal(t, dir, "Journal.2024-03-01T182205.01.log", jumpDelkar, saaPlatinum)
	writeJournal(t, dir, "Journal.2024-03-02T091000.01.log", jumpDelkar2, scanRing)

	stats, err := NewRunner(db).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SiblingsBackfilled)

	rec, err := db.GetHotspot("Delkar", "7 A Ring", "Platinum")
	require.NoError(t, err)
	assert.True(t, rec.Metadata.IsComplete())
}
