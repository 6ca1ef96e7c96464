package pile

// Options tunes a single Promote call. The zero value trusts every member and
// visits without limit.
type Options struct {
	// Trusted guards rewrites: members it rejects are traversed but left as is.
	Trusted Predicate
	// MaxVisits caps the visited set. 0 means unlimited.
	MaxVisits int
}

// Result reports what one Promote call did.
type Result struct {
	// Changed counts rewritten cells. The trigger clear is not included.
	Changed int `json:"changed"`
	// Members counts member cells dequeued with a live member block.
	Members int `json:"members"`
	// Cleared is set when the trigger cell held a member and was set to air.
	Cleared bool `json:"cleared"`
	// Truncated is set when MaxVisits stopped the traversal early.
	Truncated bool `json:"truncated,omitempty"`
}

// Promote clears the trigger cell if it is a member, then floods the
// face-connected member region seeded from the trigger's 6 neighbors and
// rewrites every trusted member block to target.
//
// Cells are marked visited when discovered, not when dequeued, so each cell
// is queued at most once. A queued cell whose live block is no longer a member
// is skipped without expanding.
func Promote(g Grid, trigger Vec3i, isMember Predicate, target uint16, opts Options) Result {
	var res Result
	if g == nil || isMember == nil {
		return res
	}
	trusted := opts.Trusted
	if trusted == nil {
		trusted = func(Block) bool { return true }
	}

	if isMember(g.Get(trigger)) {
		g.Set(trigger, Air)
		res.Cleared = true
	}

	visited := map[Vec3i]struct{}{}
	mark := func(p Vec3i) bool {
		if _, ok := visited[p]; ok {
			return false
		}
		if opts.MaxVisits > 0 && len(visited) >= opts.MaxVisits {
			res.Truncated = true
			return false
		}
		visited[p] = struct{}{}
		return true
	}

	var queue []Vec3i
	for _, f := range Faces {
		p := trigger.Add(f)
		if !isMember(g.Get(p)) {
			continue
		}
		if !mark(p) {
			continue
		}
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		b := g.Get(cur)
		if !isMember(b) {
			continue
		}
		res.Members++

		if b.ID != target && trusted(b) {
			g.Set(cur, target)
			res.Changed++
		}

		for _, f := range Faces {
			next := cur.Add(f)
			if !mark(next) {
				continue
			}
			if isMember(g.Get(next)) {
				queue = append(queue, next)
			}
		}
	}
	return res
}
