package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordArrival(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 3, 1, 18, 22, 5, 0, time.UTC)

	require.NoError(t, db.RecordArrival("Delkar", true, -34.84375, 29.0, -4.90625, at))

	v, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.VisitCount)
	assert.True(t, v.HasPos)
	assert.Equal(t, -34.84375, v.X)
	assert.True(t, v.FirstVisit.Equal(at))
	assert.True(t, v.LastVisit.Equal(at))
}

func TestRecordArrivalDeduplicatesByTimestamp(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 3, 1, 18, 22, 5, 0, time.UTC)

	// The same journal window replayed three times.
	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordArrival("Delkar", false, 0, 0, 0, at))
	}
	require.NoError(t, db.RecordArrival("Delkar", false, 0, 0, 0, at.Add(time.Hour)))

	v, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	assert.Equal(t, 2, v.VisitCount)
	assert.True(t, v.FirstVisit.Equal(at))
	assert.True(t, v.LastVisit.Equal(at.Add(time.Hour)))
}

func TestRecordArrivalCoordinatesFirstWriterWins(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 3, 1, 18, 22, 5, 0, time.UTC)

	require.NoError(t, db.RecordArrival("Delkar", false, 0, 0, 0, at))
	v, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	assert.False(t, v.HasPos)

	require.NoError(t, db.RecordArrival("Delkar", true, 1, 2, 3, at.Add(time.Hour)))
	require.NoError(t, db.RecordArrival("Delkar", true, 9, 9, 9, at.Add(2*time.Hour)))

	v, err = db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	assert.True(t, v.HasPos)
	assert.Equal(t, 1.0, v.X)
	assert.Equal(t, 3.0, v.Z)
}

func TestRecordArrivalRejectsEmptySystem(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.RecordArrival("", false, 0, 0, 0, time.Now()))
}

func TestAllVisitedSystemsOrder(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordArrival("Alpha", false, 0, 0, 0, base))
	require.NoError(t, db.RecordArrival("Beta", false, 0, 0, 0, base.Add(time.Hour)))
	require.NoError(t, db.RecordArrival("Gamma", false, 0, 0, 0, base.Add(2*time.Hour)))

	systems, err := db.AllVisitedSystems()
	require.NoError(t, err)
	require.Len(t, systems, 3)
	assert.Equal(t, "Gamma", systems[0].System)
	assert.Equal(t, "Alpha", systems[2].System)
}

func TestRecomputeVisitCounts(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 3, 1, 18, 22, 5, 0, time.UTC)

	require.NoError(t, db.RecordArrival("Delkar", false, 0, 0, 0, at))
	require.NoError(t, db.RecordArrival("Delkar", false, 0, 0, 0, at.Add(time.Hour)))

	// Simulate an older build that counted raw events.
	_, err := db.GetDB().Exec(`UPDATE visited_systems SET visit_count = 17 WHERE system_name = 'Delkar'`)
	require.NoError(t, err)

	changed, err := db.RecomputeVisitCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	v, err := db.GetVisitedSystem("Delkar")
	require.NoError(t, err)
	assert.Equal(t, 2, v.VisitCount)

	// Already consistent: nothing to do.
	changed, err = db.RecomputeVisitCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}
