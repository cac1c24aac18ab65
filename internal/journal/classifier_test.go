package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyArrival(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:22:05Z","event":"FSDJump","StarSystem":"Delkar","StarPos":[-34.84375,29.0,-4.90625]}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	require.Len(t, events, 1)

	arrival, ok := events[0].(ArrivalEvent)
	require.True(t, ok)
	assert.Equal(t, "Delkar", arrival.System)
	assert.True(t, arrival.HasPos)
	assert.Equal(t, -34.84375, arrival.X)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 22, 5, 0, time.UTC), arrival.Timestamp)
}

func TestClassifyArrivalWithoutPosition(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:22:05Z","event":"Location","StarSystem":"Delkar"}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].(ArrivalEvent).HasPos)
}

func TestClassifyArrivalMissingSystem(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:22:05Z","event":"FSDJump"}`)

	_, err := Classify(line, "")
	assert.ErrorIs(t, err, ErrSkip)
}

func TestClassifyRingScan(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:25:00Z","event":"Scan","StarSystem":"Delkar","BodyName":"Delkar 7",` +
		`"DistanceFromArrivalLS":1522.3,"Rings":[` +
		`{"Name":"Delkar 7 A Ring","RingClass":"eRingClass_Icy","MassMT":3.3e10,"InnerRad":1.2e8,"OuterRad":2.4e8},` +
		`{"Name":"Delkar 7 B Belt","RingClass":"eRingClass_Rocky"}]}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	// The belt entry is dropped.
	require.Len(t, events, 1)

	scan, ok := events[0].(RingScanEvent)
	require.True(t, ok)
	assert.Equal(t, "Delkar", scan.System)
	assert.Equal(t, "7 A Ring", scan.Ring)
	assert.Equal(t, "eRingClass_Icy", scan.Class)
	require.NotNil(t, scan.MassMT)
	assert.Equal(t, 3.3e10, *scan.MassMT)
	require.NotNil(t, scan.DistanceLS)
	assert.Equal(t, 1522.3, *scan.DistanceLS)
}

func TestClassifyRingScanUsesCurrentSystem(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:25:00Z","event":"Scan","BodyName":"Delkar 7",` +
		`"Rings":[{"Name":"Delkar 7 A Ring","RingClass":"eRingClass_Icy"}]}`)

	events, err := Classify(line, "Delkar")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Delkar", events[0].(RingScanEvent).System)

	_, err = Classify(line, "")
	assert.ErrorIs(t, err, ErrSkip)
}

func TestClassifyRingScanWithoutRings(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:25:00Z","event":"Scan","StarSystem":"Delkar","BodyName":"Delkar 7"}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClassifyHotspots(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:30:00Z","event":"SAASignalsFound","StarSystem":"Delkar",` +
		`"BodyName":"Delkar 7 A Ring","Signals":[` +
		`{"Type":"Platinum","Count":3},` +
		`{"Type":"$SAA_SignalType_Biological;","Type_Localised":"Biological","Count":2},` +
		`{"Type":"LowTemperatureDiamond","Type_Localised":"Low Temperature Diamonds","Count":1},` +
		`{"Type":"Painite","Count":0}]}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	require.Len(t, events, 1)

	scan, ok := events[0].(HotspotScanEvent)
	require.True(t, ok)
	assert.Equal(t, "Delkar", scan.System)
	assert.Equal(t, "7 A Ring", scan.Ring)
	require.Len(t, scan.Signals, 2)
	assert.Equal(t, HotspotSignal{Material: "Platinum", Count: 3}, scan.Signals[0])
	assert.Equal(t, HotspotSignal{Material: "Low Temperature Diamonds", Count: 1}, scan.Signals[1])
}

func TestClassifyHotspotsSymbolicOnly(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:30:00Z","event":"SAASignalsFound","StarSystem":"Delkar",` +
		`"BodyName":"Delkar 7 A Ring","Signals":[{"Type":"$SAA_SignalType_Human;","Count":4}]}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClassifyIgnoresOtherEvents(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:30:00Z","event":"Music","MusicTrack":"Exploration"}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestClassifyMalformedLine(t *testing.T) {
	_, err := Classify([]byte(`{"timestamp":"2024-03-01T18`), "")
	assert.Error(t, err)
}

func TestClassifySubsecondTimestamp(t *testing.T) {
	line := []byte(`{"timestamp":"2024-03-01T18:22:05.123Z","event":"FSDJump","StarSystem":"Delkar"}`)

	events, err := Classify(line, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 123000000, events[0].(ArrivalEvent).Timestamp.Nanosecond())
}
