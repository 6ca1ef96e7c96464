package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelpile.ai/internal/sim/pile"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	BoundaryR          int `yaml:"world_boundary_r"`
	Height             int `yaml:"height"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Pit       Pit       `yaml:"pit"`
	Promotion Promotion `yaml:"promotion"`
}

// Pit tunes the simulated charcoal pit conversion.
type Pit struct {
	// MaxVolume bounds the fuel cells one pit converts.
	MaxVolume int `yaml:"max_volume"`
	// MaxTier is the highest random tier a converted cell can receive.
	MaxTier int `yaml:"max_tier"`
}

// Promotion configures the pile promoter that runs after every conversion.
type Promotion struct {
	Disabled bool `yaml:"disabled"`
	// IdealTier is clamped to [1,16] when probing the catalog.
	IdealTier int    `yaml:"ideal_tier"`
	Family    string `yaml:"family"`
	Domain    string `yaml:"domain"`
	MaxVisits int    `yaml:"max_visits"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         5,
		BoundaryR:          4000,
		Height:             256,
		SnapshotEveryTicks: 3000,
		Pit: Pit{
			MaxVolume: 1024,
			MaxTier:   8,
		},
		Promotion: Promotion{
			IdealTier: pile.DefaultIdealTier,
			Family:    "charcoalpile",
			Domain:    "game",
		},
	}
}

// Load reads a tuning file on top of Defaults; keys absent from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.normalize(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) normalize() error {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.Height < 0 || t.BoundaryR < 0 {
		return fmt.Errorf("height and world_boundary_r must not be negative")
	}
	if t.Pit.MaxVolume <= 0 {
		t.Pit.MaxVolume = d.Pit.MaxVolume
	}
	if t.Pit.MaxTier <= 0 {
		t.Pit.MaxTier = d.Pit.MaxTier
	}
	t.Promotion.Family = strings.TrimSpace(t.Promotion.Family)
	t.Promotion.Domain = strings.TrimSpace(t.Promotion.Domain)
	if t.Promotion.Family == "" {
		t.Promotion.Family = d.Promotion.Family
	}
	if t.Promotion.IdealTier == 0 {
		t.Promotion.IdealTier = d.Promotion.IdealTier
	}
	if t.Promotion.MaxVisits < 0 {
		return fmt.Errorf("promotion.max_visits must not be negative")
	}
	return nil
}

// PileConfig converts the promotion section for pile.NewPromoter.
func (p Promotion) PileConfig() pile.Config {
	return pile.Config{
		IdealTier: p.IdealTier,
		Family:    pile.Family{Domain: p.Domain, Prefix: p.Family},
		MaxVisits: p.MaxVisits,
	}
}
