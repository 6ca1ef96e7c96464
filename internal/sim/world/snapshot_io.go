package world

import (
	"context"
	"fmt"

	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/tuning"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures the world. Loop goroutine only.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	p := w.cfg.Promotion
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
			Digest:  w.chunks.Digest(),
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.TickRateHz,
		Height:        w.cfg.Height,
		BoundaryR:     w.cfg.BoundaryR,
		PaletteDigest: w.catalogs.Blocks.PaletteDigest,
		Pit:           snapshot.PitV1{MaxVolume: w.cfg.Pit.MaxVolume, MaxTier: w.cfg.Pit.MaxTier},
		Promotion: snapshot.PromotionV1{
			Disabled:  p.Disabled,
			IdealTier: p.IdealTier,
			Family:    p.Family,
			Domain:    p.Domain,
			MaxVisits: p.MaxVisits,
		},
		Chunks: store.ExportLoadedChunks(w.chunks.Chunks, w.chunks.LoadedChunkKeys()),
		Counters: snapshot.CountersV1{
			Conversions: w.conversions.Load(),
			Promotions:  w.promotions.Load(),
		},
	}
}

// ImportSnapshot replaces the chunk store and counters. The world config is
// kept; use ConfigFromSnapshot to resume with the snapshot's parameters.
// Must be called before Run.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.PaletteDigest != "" && snap.PaletteDigest != w.catalogs.Blocks.PaletteDigest {
		return fmt.Errorf("snapshot palette digest %s does not match catalog %s", snap.PaletteDigest, w.catalogs.Blocks.PaletteDigest)
	}
	chunks, err := store.ImportChunks(w.chunks.Bounds, snap.Chunks)
	if err != nil {
		return err
	}
	if snap.Header.Digest != "" && chunks.Digest() != snap.Header.Digest {
		return fmt.Errorf("snapshot state digest mismatch")
	}
	w.chunks = chunks
	w.tick.Store(snap.Header.Tick)
	w.conversions.Store(snap.Counters.Conversions)
	w.promotions.Store(snap.Counters.Promotions)
	return nil
}

// ConfigFromSnapshot rebuilds the config a snapshot was taken with.
func ConfigFromSnapshot(snap snapshot.SnapshotV1, snapshotEveryTicks int) WorldConfig {
	return WorldConfig{
		ID:                 snap.Header.WorldID,
		TickRateHz:         snap.TickRate,
		Height:             snap.Height,
		Seed:               snap.Seed,
		BoundaryR:          snap.BoundaryR,
		SnapshotEveryTicks: snapshotEveryTicks,
		Pit:                tuning.Pit{MaxVolume: snap.Pit.MaxVolume, MaxTier: snap.Pit.MaxTier},
		Promotion: tuning.Promotion{
			Disabled:  snap.Promotion.Disabled,
			IdealTier: snap.Promotion.IdealTier,
			Family:    snap.Promotion.Family,
			Domain:    snap.Promotion.Domain,
			MaxVisits: snap.Promotion.MaxVisits,
		},
	}
}

// RequestSnapshot asks the world loop for a snapshot.
func (w *World) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	resp := make(chan snapshot.SnapshotV1, 1)
	if err := send(ctx, w.snapReq, SnapshotRequest{Resp: resp}); err != nil {
		return snapshot.SnapshotV1{}, err
	}
	return wait(ctx, resp)
}
