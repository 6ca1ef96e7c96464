package world

import "voxelpile.ai/internal/sim/tuning"

type WorldConfig struct {
	ID         string
	TickRateHz int
	Height     int
	Seed       int64
	BoundaryR  int

	// Operational parameters. These are included in snapshots for resume.
	SnapshotEveryTicks int

	Pit       tuning.Pit
	Promotion tuning.Promotion
}

// ConfigFromTuning builds a world config from a loaded tuning file.
func ConfigFromTuning(id string, seed int64, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		Height:             t.Height,
		Seed:               seed,
		BoundaryR:          t.BoundaryR,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		Pit:                t.Pit,
		Promotion:          t.Promotion,
	}
}

func (c *WorldConfig) applyDefaults() {
	d := tuning.Defaults()
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = d.TickRateHz
	}
	if c.Pit.MaxVolume <= 0 {
		c.Pit.MaxVolume = d.Pit.MaxVolume
	}
	if c.Pit.MaxTier <= 0 {
		c.Pit.MaxTier = d.Pit.MaxTier
	}
	if c.Promotion == (tuning.Promotion{}) {
		c.Promotion = d.Promotion
	}
	if c.Promotion.Family == "" {
		c.Promotion.Family = d.Promotion.Family
	}
	if c.Promotion.IdealTier == 0 {
		c.Promotion.IdealTier = d.Promotion.IdealTier
	}
}
