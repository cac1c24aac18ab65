package reconcile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMetadataFillsMissingFields(t *testing.T) {
	stored := RingMetadata{Class: RingIcy, DistanceLS: Float(1522)}
	incoming := RingMetadata{InnerRad: Float(1.2e8), OuterRad: Float(2.4e8), MassMT: Float(3.3e10)}

	merged, changed := MergeMetadata(stored, SourceGameLog, incoming, SourceGameLog)

	assert.True(t, changed)
	assert.Equal(t, RingIcy, merged.Class)
	require.NotNil(t, merged.DistanceLS)
	assert.Equal(t, 1522.0, *merged.DistanceLS)
	require.NotNil(t, merged.InnerRad)
	assert.Equal(t, 1.2e8, *merged.InnerRad)
	// All three density inputs are now known, so density gets derived.
	require.NotNil(t, merged.Density)
}

func TestMergeMetadataNeverErasesStoredValues(t *testing.T) {
	stored := RingMetadata{Class: RingRocky, DistanceLS: Float(800), MassMT: Float(5e9)}
	incoming := RingMetadata{} // empty observation

	merged, changed := MergeMetadata(stored, SourceGameLog, incoming, SourceGameLog)

	assert.False(t, changed)
	assert.Equal(t, RingRocky, merged.Class)
	require.NotNil(t, merged.DistanceLS)
	assert.Equal(t, 800.0, *merged.DistanceLS)
	require.NotNil(t, merged.MassMT)
}

func TestMergeMetadataEqualProvenanceKeepsStored(t *testing.T) {
	stored := RingMetadata{DistanceLS: Float(1000)}
	incoming := RingMetadata{DistanceLS: Float(2000)}

	merged, changed := MergeMetadata(stored, SourceGameLog, incoming, SourceGameLog)

	assert.False(t, changed)
	assert.Equal(t, 1000.0, *merged.DistanceLS)
}

func TestMergeMetadataHigherProvenanceOverwrites(t *testing.T) {
	stored := RingMetadata{Class: RingIcy, DistanceLS: Float(1000)}
	incoming := RingMetadata{Class: RingMetallic, DistanceLS: Float(2000)}

	merged, changed := MergeMetadata(stored, SourceExternalImport, incoming, SourceGameLog)

	assert.True(t, changed)
	assert.Equal(t, RingMetallic, merged.Class)
	assert.Equal(t, 2000.0, *merged.DistanceLS)
}

func TestMergeMetadataLowerProvenanceStillFillsGaps(t *testing.T) {
	stored := RingMetadata{Class: RingIcy}
	incoming := RingMetadata{Class: RingRocky, DistanceLS: Float(420)}

	merged, changed := MergeMetadata(stored, SourceGameLog, incoming, SourceExternalImport)

	assert.True(t, changed)
	// The class conflict is not applied, but the missing distance is.
	assert.Equal(t, RingIcy, merged.Class)
	require.NotNil(t, merged.DistanceLS)
	assert.Equal(t, 420.0, *merged.DistanceLS)
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		meta RingMetadata
		want *float64
	}{
		{
			name: "all parts known",
			meta: RingMetadata{InnerRad: Float(1000), OuterRad: Float(2000), MassMT: Float(3e6)},
			want: Float(3e6 / (math.Pi * (2000*2000 - 1000*1000))),
		},
		{
			name: "missing mass",
			meta: RingMetadata{InnerRad: Float(1000), OuterRad: Float(2000)},
			want: nil,
		},
		{
			name: "missing inner radius",
			meta: RingMetadata{OuterRad: Float(2000), MassMT: Float(3e6)},
			want: nil,
		},
		{
			name: "inverted radii",
			meta: RingMetadata{InnerRad: Float(2000), OuterRad: Float(1000), MassMT: Float(3e6)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.meta)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestDecideCount(t *testing.T) {
	tests := []struct {
		name           string
		stored         int
		storedSource   Provenance
		incoming       int
		incomingSource Provenance
		want           CountDecision
	}{
		{"equal counts", 3, SourceGameLog, 3, SourceExternalImport, CountKeep},
		{"same provenance disagreement", 3, SourceGameLog, 2, SourceGameLog, CountConflict},
		{"game log corrects import", 3, SourceExternalImport, 2, SourceGameLog, CountOverwrite},
		{"import never corrects game log", 3, SourceGameLog, 5, SourceExternalImport, CountConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideCount(tt.stored, tt.storedSource, tt.incoming, tt.incomingSource)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestKnownFoldsSiblings(t *testing.T) {
	a := RingMetadata{Class: RingIcy, DistanceLS: Float(1522)}
	b := RingMetadata{InnerRad: Float(1e8), OuterRad: Float(2e8)}
	c := RingMetadata{MassMT: Float(4e10), DistanceLS: Float(9999)} // distance already taken from a

	best := BestKnown(a, b, c)

	assert.Equal(t, RingIcy, best.Class)
	assert.Equal(t, 1522.0, *best.DistanceLS)
	assert.Equal(t, 1e8, *best.InnerRad)
	assert.Equal(t, 4e10, *best.MassMT)
	// Density derived from the folded parts.
	require.NotNil(t, best.Density)
	assert.True(t, best.IsComplete())
}

func TestBestKnownEmptyInput(t *testing.T) {
	best := BestKnown()
	assert.True(t, best.IsEmpty())
}

func TestProvenanceRoundTrip(t *testing.T) {
	assert.Equal(t, SourceGameLog, ParseProvenance(SourceGameLog.String()))
	assert.Equal(t, SourceExternalImport, ParseProvenance(SourceExternalImport.String()))
	assert.Equal(t, SourceExternalImport, ParseProvenance("garbage"))
	assert.True(t, SourceGameLog.Outranks(SourceExternalImport))
	assert.False(t, SourceGameLog.Outranks(SourceGameLog))
}

func TestParseRingClass(t *testing.T) {
	assert.Equal(t, RingIcy, ParseRingClass("eRingClass_Icy"))
	assert.Equal(t, RingMetallic, ParseRingClass("eRingClass_Metalic"))
	assert.Equal(t, RingMetallic, ParseRingClass("eRingClass_MetalRich"))
	assert.Equal(t, RingRocky, ParseRingClass("eRingClass_Rocky"))
	assert.Equal(t, RingUnknown, ParseRingClass("eRingClass_Unknown"))
	assert.Equal(t, RingIcy, ParseRingClass("Icy"))
}
