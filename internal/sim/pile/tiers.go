package pile

import "strconv"

// Probing never leaves [MinTier, MaxTier], whatever the configured tier is.
const (
	MinTier = 1
	MaxTier = 16
)

// ClampTier restricts tier to [MinTier, MaxTier] and reports whether it changed.
func ClampTier(tier int) (int, bool) {
	switch {
	case tier < MinTier:
		return MinTier, true
	case tier > MaxTier:
		return MaxTier, true
	default:
		return tier, false
	}
}

// TierCode builds the catalog code of a family tier, e.g. "charcoalpile-4".
func TierCode(prefix string, tier int) string {
	return prefix + "-" + strconv.Itoa(tier)
}

// ResolveTiers probes the catalog for prefix-1..prefix-maxTier (after clamping)
// and maps each tier that exists to its block id. An empty map is a valid result.
func ResolveTiers(maxTier int, prefix string, lookup CatalogLookup) map[int]uint16 {
	out := map[int]uint16{}
	if lookup == nil {
		return out
	}
	safeMax, _ := ClampTier(maxTier)
	for h := MinTier; h <= safeMax; h++ {
		b, ok := lookup.Lookup(TierCode(prefix, h))
		if !ok || b.ID == Air {
			continue
		}
		out[h] = b.ID
	}
	return out
}
