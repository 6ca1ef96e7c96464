package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/pile"
	"voxelpile.ai/internal/sim/world/logic/mathx"
)

// ConvertPit burns the pit at pos. Every fuel block face-connected to the pit
// (up to Pit.MaxVolume cells) becomes a pile block of a pseudo-random tier,
// the pit itself becomes a pile block, and a ConversionEvent is published.
// Loop goroutine only.
func (w *World) ConvertPit(pos Vec3i) (ConversionEvent, error) {
	cat := &w.catalogs.Blocks
	if cat.Kind(w.chunks.GetBlock(pos.X, pos.Y, pos.Z)) != catalogs.KindPit {
		return ConversionEvent{}, fmt.Errorf("%w: %v", ErrNotPit, pos)
	}

	fam := w.cfg.Promotion.PileConfig().Family
	tiers := pile.ResolveTiers(w.cfg.Pit.MaxTier, fam.QualifiedPrefix(), cat)
	if len(tiers) == 0 {
		return ConversionEvent{}, fmt.Errorf("%w: %s", ErrNoPileVariants, fam.QualifiedPrefix())
	}
	ids := make([]uint16, 0, len(tiers))
	hs := make([]int, 0, len(tiers))
	for h := range tiers {
		hs = append(hs, h)
	}
	sort.Ints(hs)
	for _, h := range hs {
		ids = append(ids, tiers[h])
	}

	n := w.conversions.Add(1)
	salt := w.cfg.Seed + int64(n)
	pick := func(p Vec3i) uint16 {
		return ids[mathx.Hash3(salt, p.X, p.Y, p.Z)%uint64(len(ids))]
	}

	g := gridView{w: w, actor: "PIT", reason: "PIT_CONVERT"}
	fuel := w.collectFuel(pos)
	for _, p := range fuel {
		g.Set(p, pick(p))
	}
	g.Set(pos, pick(pos))

	ev := &ConversionEvent{
		WorldID:   w.cfg.ID,
		Tick:      w.tick.Load(),
		Pos:       pos,
		Converted: len(fuel) + 1,
	}
	for _, h := range w.handlers {
		h(ev)
	}
	return *ev, nil
}

// collectFuel returns fuel cells connected to pos in discovery order.
func (w *World) collectFuel(pos Vec3i) []Vec3i {
	cat := &w.catalogs.Blocks
	isFuel := func(p Vec3i) bool {
		return cat.Kind(w.chunks.GetBlock(p.X, p.Y, p.Z)) == catalogs.KindFuel
	}

	seen := map[Vec3i]bool{pos: true}
	queue := []Vec3i{pos}
	var out []Vec3i
	for len(queue) > 0 && len(out) < w.cfg.Pit.MaxVolume {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range pile.Faces {
			next := cur.Add(f)
			if seen[next] {
				continue
			}
			seen[next] = true
			if !isFuel(next) {
				continue
			}
			out = append(out, next)
			if len(out) >= w.cfg.Pit.MaxVolume {
				break
			}
			queue = append(queue, next)
		}
	}
	return out
}

func (w *World) promoteOnConversion(ev *ConversionEvent) {
	rec, err := w.PromoteAt(ev.Pos, TriggerConvert)
	if err != nil && !errors.Is(err, pile.ErrNoTargetAvailable) {
		w.log.Error("promotion failed", "pos", ev.Pos, "err", err)
		return
	}
	ev.Promotion = &rec
}

// PromoteAt runs the pile promoter with pos as trigger and emits the record to
// every promotion sink, aborted runs included. Loop goroutine only.
func (w *World) PromoteAt(pos Vec3i, trigger string) (PromotionRecord, error) {
	if w.promoter == nil {
		return PromotionRecord{}, ErrPromotionDisabled
	}
	rec := PromotionRecord{
		RunID:   uuid.NewString(),
		WorldID: w.cfg.ID,
		Tick:    w.tick.Load(),
		Pos:     posArray(pos),
		Trigger: trigger,
	}

	g := gridView{w: w, actor: "PROMOTER", reason: "PILE_PROMOTE", runID: rec.RunID}
	out, err := w.promoter.Run(g, pos)
	rec.Tier = out.Tier
	rec.Fallback = out.Fallback
	rec.Clamped = out.Clamped
	if err != nil {
		rec.Aborted = true
		rec.Reason = ReasonNoTarget
		w.emitPromotion(rec)
		return rec, err
	}
	rec.Target = w.catalogs.Blocks.Name(out.Target)
	rec.Changed = out.Changed
	rec.Members = out.Members
	rec.Cleared = out.Cleared
	rec.Truncated = out.Truncated

	w.promotions.Add(1)
	w.emitPromotion(rec)
	return rec, nil
}
