package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"prospector/internal/normalize"
)

// ErrSkip marks a line that decoded but is missing a field its kind
// requires; callers count it and move on.
var ErrSkip = errors.New("record missing required fields")

// journal timestamp layout, always UTC with a trailing Z.
const timeLayout = "2006-01-02T15:04:05Z"

type rawRecord struct {
	Timestamp  string      `json:"timestamp"`
	Event      string      `json:"event"`
	StarSystem string      `json:"StarSystem"`
	StarPos    []float64   `json:"StarPos"`
	BodyName   string      `json:"BodyName"`
	DistanceLS *float64    `json:"DistanceFromArrivalLS"`
	Rings      []rawRing   `json:"Rings"`
	Signals    []rawSignal `json:"Signals"`
}

type rawRing struct {
	Name      string   `json:"Name"`
	RingClass string   `json:"RingClass"`
	MassMT    *float64 `json:"MassMT"`
	InnerRad  *float64 `json:"InnerRad"`
	OuterRad  *float64 `json:"OuterRad"`
}

type rawSignal struct {
	Type          string `json:"Type"`
	TypeLocalised string `json:"Type_Localised"`
	Count         int    `json:"Count"`
}

// Classify decodes one journal line and returns the events it yields, if
// any. currentSystem is the location context carried from the most recent
// arrival; it keys ring and hotspot events whose records do not repeat the
// system name.
//
// Unrecognized record kinds return (nil, nil). Lines that fail to decode, or
// that decode but lack fields their kind requires, return an error; nothing
// here is fatal to a run.
func Classify(line []byte, currentSystem string) ([]Event, error) {
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("decode journal line: %w", err)
	}

	switch rec.Event {
	case "FSDJump", "Location", "CarrierJump":
		return classifyArrival(rec)
	case "Scan":
		return classifyRingScan(rec, currentSystem)
	case "SAASignalsFound":
		return classifyHotspots(rec, currentSystem)
	default:
		return nil, nil
	}
}

func classifyArrival(rec rawRecord) ([]Event, error) {
	ts, err := parseTime(rec.Timestamp)
	if err != nil {
		return nil, err
	}
	system := normalize.System(rec.StarSystem)
	if system == "" {
		return nil, fmt.Errorf("%w: arrival without StarSystem", ErrSkip)
	}
	ev := ArrivalEvent{System: system, Timestamp: ts}
	if len(rec.StarPos) == 3 {
		ev.HasPos = true
		ev.X, ev.Y, ev.Z = rec.StarPos[0], rec.StarPos[1], rec.StarPos[2]
	}
	return []Event{ev}, nil
}

func classifyRingScan(rec rawRecord, currentSystem string) ([]Event, error) {
	if len(rec.Rings) == 0 {
		// A Scan of a body without rings is routine, not malformed.
		return nil, nil
	}
	ts, err := parseTime(rec.Timestamp)
	if err != nil {
		return nil, err
	}
	system := normalize.System(rec.StarSystem)
	if system == "" {
		system = currentSystem
	}
	if system == "" {
		return nil, fmt.Errorf("%w: ring scan with no known system", ErrSkip)
	}

	events := make([]Event, 0, len(rec.Rings))
	for _, ring := range rec.Rings {
		// Scan records list belts alongside rings; belts have no hotspots.
		if !strings.HasSuffix(ring.Name, "Ring") {
			continue
		}
		events = append(events, RingScanEvent{
			System:     system,
			Ring:       normalize.Ring(system, ring.Name),
			Class:      ring.RingClass,
			InnerRad:   ring.InnerRad,
			OuterRad:   ring.OuterRad,
			MassMT:     ring.MassMT,
			DistanceLS: rec.DistanceLS,
			Timestamp:  ts,
		})
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events, nil
}

func classifyHotspots(rec rawRecord, currentSystem string) ([]Event, error) {
	ts, err := parseTime(rec.Timestamp)
	if err != nil {
		return nil, err
	}
	system := normalize.System(rec.StarSystem)
	if system == "" {
		system = currentSystem
	}
	if system == "" {
		return nil, fmt.Errorf("%w: hotspot scan with no known system", ErrSkip)
	}
	if rec.BodyName == "" {
		return nil, fmt.Errorf("%w: hotspot scan without BodyName", ErrSkip)
	}

	signals := make([]HotspotSignal, 0, len(rec.Signals))
	for _, sig := range rec.Signals {
		name := sig.TypeLocalised
		if name == "" {
			name = sig.Type
		}
		// Symbolic types ($SAA_SignalType_Biological; etc.) are surface
		// signals, not mineral hotspots.
		if strings.HasPrefix(name, "$") || sig.Count <= 0 {
			continue
		}
		signals = append(signals, HotspotSignal{
			Material: normalize.Material(name),
			Count:    sig.Count,
		})
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return []Event{HotspotScanEvent{
		System:    system,
		Ring:      normalize.Ring(system, rec.BodyName),
		Signals:   signals,
		Timestamp: ts,
	}}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: record without timestamp", ErrSkip)
	}
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		// Some events carry sub-second precision.
		ts, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrSkip, s)
	}
	return ts.UTC(), nil
}
