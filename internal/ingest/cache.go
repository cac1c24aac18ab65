package ingest

import "prospector/internal/reconcile"

type ringKey struct {
	System string
	Ring   string
}

// MetadataCache holds the most recently observed ring metadata during one
// ingestion run. A ring-composition scan arrives before the hotspot scan of
// the same ring, often in an earlier journal file; the cache carries that
// metadata forward so hotspot records can be enriched. It is rebuilt every
// run and never persisted.
type MetadataCache struct {
	entries map[ringKey]reconcile.RingMetadata
}

// NewMetadataCache returns an empty cache.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{entries: make(map[ringKey]reconcile.RingMetadata)}
}

// Record merges an observed reading into the cache. Only fields present in
// the new reading are updated; fields it does not carry keep their earlier
// values. Within a session the newest reading of a field wins (the game
// re-reports current values, it does not regress them).
func (c *MetadataCache) Record(system, ring string, meta reconcile.RingMetadata) {
	key := ringKey{System: system, Ring: ring}
	cur := c.entries[key]

	if meta.Class != reconcile.RingUnknown {
		cur.Class = meta.Class
	}
	setFloat(&cur.DistanceLS, meta.DistanceLS)
	setFloat(&cur.InnerRad, meta.InnerRad)
	setFloat(&cur.OuterRad, meta.OuterRad)
	setFloat(&cur.MassMT, meta.MassMT)
	setFloat(&cur.Density, meta.Density)
	if d := reconcile.Derive(cur); d != nil {
		cur.Density = d
	}

	c.entries[key] = cur
}

// Lookup returns the cached metadata for a ring. Absence is routine (remote
// hotspot discovery without a full ring scan) and returns an empty value.
func (c *MetadataCache) Lookup(system, ring string) (reconcile.RingMetadata, bool) {
	meta, ok := c.entries[ringKey{System: system, Ring: ring}]
	return meta, ok
}

// Len returns the number of cached rings.
func (c *MetadataCache) Len() int { return len(c.entries) }

func setFloat(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
