// Package reconcile holds the value types and pure merge rules for hotspot
// observations. Both the ingestion path and the maintenance tooling go
// through these functions, so a fix here applies everywhere.
package reconcile

import "time"

// RingClass categorizes a planetary ring.
type RingClass int

const (
	RingUnknown RingClass = iota
	RingIcy
	RingMetallic
	RingRocky
)

// String returns the canonical display name for a ring class.
func (c RingClass) String() string {
	switch c {
	case RingIcy:
		return "Icy"
	case RingMetallic:
		return "Metallic"
	case RingRocky:
		return "Rocky"
	default:
		return "Unknown"
	}
}

// ParseRingClass maps the journal's eRingClass_* strings onto RingClass.
// The game spells metallic "Metalic"; metal-rich rings are grouped with
// metallic for mining purposes.
func ParseRingClass(s string) RingClass {
	switch s {
	case "eRingClass_Icy", "Icy":
		return RingIcy
	case "eRingClass_Metalic", "eRingClass_MetalRich", "Metallic":
		return RingMetallic
	case "eRingClass_Rocky", "Rocky":
		return RingRocky
	default:
		return RingUnknown
	}
}

// Provenance ranks where an observation came from. Higher values outrank
// lower ones: a live game-log scan may correct imported community data,
// never the reverse.
type Provenance int

const (
	SourceExternalImport Provenance = iota
	SourceGameLog
)

// String returns the storage/display name for a provenance level.
func (p Provenance) String() string {
	if p == SourceGameLog {
		return "game-log"
	}
	return "external-import"
}

// ParseProvenance is the inverse of String; unknown values map to
// external-import, the least trusted level.
func ParseProvenance(s string) Provenance {
	if s == "game-log" {
		return SourceGameLog
	}
	return SourceExternalImport
}

// Outranks reports whether p is strictly more authoritative than q.
func (p Provenance) Outranks(q Provenance) bool { return p > q }

// RingMetadata carries the physical ring attributes shared by every material
// in a ring. Nil pointer fields mean "never observed"; RingUnknown plays the
// same role for the class.
type RingMetadata struct {
	Class      RingClass
	DistanceLS *float64 // from arrival point, light seconds
	InnerRad   *float64 // meters
	OuterRad   *float64 // meters
	MassMT     *float64 // megatons
	Density    *float64 // derived, see Derive
}

// IsEmpty reports whether no field has ever been observed.
func (m RingMetadata) IsEmpty() bool {
	return m.Class == RingUnknown && m.DistanceLS == nil && m.InnerRad == nil &&
		m.OuterRad == nil && m.MassMT == nil && m.Density == nil
}

// IsComplete reports whether every field is known.
func (m RingMetadata) IsComplete() bool {
	return m.Class != RingUnknown && m.DistanceLS != nil && m.InnerRad != nil &&
		m.OuterRad != nil && m.MassMT != nil && m.Density != nil
}

// Observation is one classified (system, ring, material) reading headed for
// the store.
type Observation struct {
	System    string
	Ring      string
	Material  string
	Count     int
	Metadata  RingMetadata
	Source    Provenance
	ScannedAt time.Time
}

// CompletionState describes how much of a stored record is known.
type CompletionState int

const (
	StateUnknown CompletionState = iota
	StatePartiallyKnown
	StateFullyKnown
)

// Completion classifies a record with a known count by its metadata.
func Completion(m RingMetadata) CompletionState {
	switch {
	case m.IsComplete():
		return StateFullyKnown
	default:
		return StatePartiallyKnown
	}
}

// Float returns a pointer to v, for building optional metadata fields.
func Float(v float64) *float64 { return &v }
