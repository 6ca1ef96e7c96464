package pile

import "errors"

// ErrNoTargetAvailable means the catalog yielded no usable pile variant.
var ErrNoTargetAvailable = errors.New("no target pile variant available")

// SelectTarget picks the tier to promote to. An exact match on ideal wins;
// otherwise the highest available tier is used.
func SelectTarget(tiers map[int]uint16, ideal int) (int, uint16, error) {
	if len(tiers) == 0 {
		return 0, Air, ErrNoTargetAvailable
	}
	if id, ok := tiers[ideal]; ok {
		return ideal, id, nil
	}

	best, bestID := 0, Air
	for h, id := range tiers {
		if h <= best {
			continue
		}
		best, bestID = h, id
	}
	if best == 0 || bestID == Air {
		return 0, Air, ErrNoTargetAvailable
	}
	return best, bestID, nil
}
