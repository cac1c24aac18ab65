package reconcile

import "math"

// MergeMetadata applies the non-destructive field-level merge: a missing
// field in the incoming metadata never erases a stored value, and a stored
// non-nil value is only replaced when the incoming observation strictly
// outranks the stored provenance. It returns the merged metadata and whether
// anything changed.
func MergeMetadata(stored RingMetadata, storedSource Provenance, incoming RingMetadata, incomingSource Provenance) (RingMetadata, bool) {
	overwrite := incomingSource.Outranks(storedSource)
	changed := false

	if incoming.Class != RingUnknown && (stored.Class == RingUnknown || (overwrite && incoming.Class != stored.Class)) {
		stored.Class = incoming.Class
		changed = true
	}
	if mergeFloat(&stored.DistanceLS, incoming.DistanceLS, overwrite) {
		changed = true
	}
	if mergeFloat(&stored.InnerRad, incoming.InnerRad, overwrite) {
		changed = true
	}
	if mergeFloat(&stored.OuterRad, incoming.OuterRad, overwrite) {
		changed = true
	}
	if mergeFloat(&stored.MassMT, incoming.MassMT, overwrite) {
		changed = true
	}
	if mergeFloat(&stored.Density, incoming.Density, overwrite) {
		changed = true
	}

	if d := Derive(stored); d != nil && (stored.Density == nil || overwrite) {
		if stored.Density == nil || *stored.Density != *d {
			stored.Density = d
			changed = true
		}
	}

	return stored, changed
}

// mergeFloat fills dst from src when dst is unset, or replaces it when the
// caller holds overwrite rights and the values differ.
func mergeFloat(dst **float64, src *float64, overwrite bool) bool {
	if src == nil {
		return false
	}
	if *dst == nil || (overwrite && **dst != *src) {
		v := *src
		*dst = &v
		return true
	}
	return false
}

// Derive computes ring density (mass over annulus cross-sectional area) when
// both radii and the mass are known, and nil otherwise. Partial inputs never
// produce a value, so density can only be as trustworthy as its parts.
func Derive(m RingMetadata) *float64 {
	if m.InnerRad == nil || m.OuterRad == nil || m.MassMT == nil {
		return nil
	}
	area := math.Pi * (*m.OuterRad**m.OuterRad - *m.InnerRad**m.InnerRad)
	if area <= 0 {
		return nil
	}
	d := *m.MassMT / area
	return &d
}

// CountDecision is the outcome of comparing an incoming count against the
// stored one.
type CountDecision int

const (
	// CountKeep means the stored count stands (values agree, or the
	// incoming observation has no standing to change it and no conflict
	// needs recording).
	CountKeep CountDecision = iota
	// CountOverwrite means the incoming provenance outranks the stored one
	// and the stored count should be replaced.
	CountOverwrite
	// CountConflict means the values disagree and provenance forbids the
	// change; the disagreement is recorded for manual review.
	CountConflict
)

// DecideCount applies the provenance-gated count rule: counts are immutable
// once set unless the incoming source strictly outranks the stored source.
func DecideCount(stored int, storedSource Provenance, incoming int, incomingSource Provenance) CountDecision {
	if incoming == stored {
		return CountKeep
	}
	if incomingSource.Outranks(storedSource) {
		return CountOverwrite
	}
	return CountConflict
}

// BestKnown folds a set of sibling metadata readings into the most complete
// per-field value for the ring. First non-nil value wins per field, so
// callers should order inputs most-trusted first; in practice siblings agree
// once the write-side backfill has run, and this read-side fold gives the
// same answer even when it has not.
func BestKnown(readings ...RingMetadata) RingMetadata {
	var best RingMetadata
	for _, m := range readings {
		if best.Class == RingUnknown {
			best.Class = m.Class
		}
		takeFloat(&best.DistanceLS, m.DistanceLS)
		takeFloat(&best.InnerRad, m.InnerRad)
		takeFloat(&best.OuterRad, m.OuterRad)
		takeFloat(&best.MassMT, m.MassMT)
		takeFloat(&best.Density, m.Density)
	}
	if best.Density == nil {
		best.Density = Derive(best)
	}
	return best
}

func takeFloat(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
