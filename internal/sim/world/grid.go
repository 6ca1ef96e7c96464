package world

import (
	"voxelpile.ai/internal/sim/pile"
)

// gridView adapts the chunk store to pile.Grid and audits every write.
type gridView struct {
	w      *World
	actor  string
	reason string
	runID  string
}

func (g gridView) Get(p Vec3i) pile.Block {
	return g.w.catalogs.Blocks.Describe(g.w.chunks.GetBlock(p.X, p.Y, p.Z))
}

func (g gridView) Set(p Vec3i, id uint16) {
	from := g.w.chunks.GetBlock(p.X, p.Y, p.Z)
	if !g.w.chunks.SetBlock(p.X, p.Y, p.Z, id) {
		return
	}
	g.w.auditSetBlock(g.w.tick.Load(), g.actor, p, from, id, g.reason, g.runID)
}
