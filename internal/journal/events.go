// Package journal reads and classifies the game's append-only journal files.
//
// A journal is newline-delimited JSON, one file per play session, appended to
// while the game runs. This package turns raw lines into a small set of typed
// events; everything else about the journal is ignored here.
package journal

import "time"

// Event is one classified journal record. The concrete types below are the
// only implementations; downstream code switches over them exhaustively
// instead of poking at raw JSON maps.
type Event interface {
	EventTime() time.Time
}

// ArrivalEvent marks the player arriving in (or loading into) a system.
type ArrivalEvent struct {
	System    string
	HasPos    bool
	X, Y, Z   float64
	Timestamp time.Time
}

// EventTime implements Event.
func (e ArrivalEvent) EventTime() time.Time { return e.Timestamp }

// RingScanEvent carries the physical attributes of one ring from a detailed
// body scan. A single Scan record with several rings produces several of
// these.
type RingScanEvent struct {
	System     string
	Ring       string // canonical designator, e.g. "7 A Ring"
	Class      string // raw journal class string, e.g. "eRingClass_Icy"
	InnerRad   *float64
	OuterRad   *float64
	MassMT     *float64
	DistanceLS *float64
	Timestamp  time.Time
}

// EventTime implements Event.
func (e RingScanEvent) EventTime() time.Time { return e.Timestamp }

// HotspotSignal is one (material, count) pair from a surface-area scan.
type HotspotSignal struct {
	Material string
	Count    int
}

// HotspotScanEvent carries the hotspot signals found in one ring. It has no
// ring metadata of its own; enrichment happens later from the metadata cache
// or the store.
type HotspotScanEvent struct {
	System    string
	Ring      string
	Signals   []HotspotSignal
	Timestamp time.Time
}

// EventTime implements Event.
func (e HotspotScanEvent) EventTime() time.Time { return e.Timestamp }
