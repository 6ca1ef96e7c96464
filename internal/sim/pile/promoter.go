package pile

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// DefaultIdealTier is the vanilla maximum pile height.
const DefaultIdealTier = 8

// Config is passed explicitly to each Promoter; there is no package state.
type Config struct {
	IdealTier int
	Family    Family
	MaxVisits int
}

// Outcome describes one pipeline run: target resolution plus the flood.
type Outcome struct {
	Tier     int    `json:"tier"`
	Target   uint16 `json:"target"`
	Fallback bool   `json:"fallback,omitempty"`
	Clamped  bool   `json:"clamped,omitempty"`
	Result
}

// Promoter runs resolve, select and promote for one trigger position.
type Promoter struct {
	cfg     Config
	catalog CatalogLookup
	log     *log.Logger
}

func NewPromoter(cfg Config, catalog CatalogLookup, logger *log.Logger) *Promoter {
	if cfg.IdealTier == 0 {
		cfg.IdealTier = DefaultIdealTier
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Promoter{
		cfg:     cfg,
		catalog: catalog,
		log:     logger.WithPrefix("promote"),
	}
}

func (p *Promoter) Config() Config { return p.cfg }

// Target resolves the block id runs will promote to. It performs no grid access.
func (p *Promoter) Target() (Outcome, error) {
	var out Outcome
	if _, clamped := ClampTier(p.cfg.IdealTier); clamped {
		out.Clamped = true
		p.log.Info("ideal tier outside probe window, clamping", "ideal", p.cfg.IdealTier, "min", MinTier, "max", MaxTier)
	}

	tiers := ResolveTiers(p.cfg.IdealTier, p.cfg.Family.QualifiedPrefix(), p.catalog)
	tier, id, err := SelectTarget(tiers, p.cfg.IdealTier)
	if err != nil {
		return out, fmt.Errorf("%s: %w", p.cfg.Family.QualifiedPrefix(), err)
	}
	out.Tier = tier
	out.Target = id
	out.Fallback = tier != p.cfg.IdealTier
	return out, nil
}

// Run promotes the pile region around trigger. When no target can be
// resolved the grid is left untouched and the error wraps ErrNoTargetAvailable.
func (p *Promoter) Run(g Grid, trigger Vec3i) (Outcome, error) {
	out, err := p.Target()
	if err != nil {
		p.log.Warn("no pile variants found, skipping promotion", "family", p.cfg.Family.QualifiedPrefix(), "pos", trigger)
		return out, err
	}
	if out.Fallback {
		p.log.Warn("configured tier not found, using fallback", "ideal", p.cfg.IdealTier, "tier", out.Tier)
	}

	out.Result = Promote(g, trigger, p.cfg.Family.IsMember, out.Target, Options{
		Trusted:   p.cfg.Family.Trusted,
		MaxVisits: p.cfg.MaxVisits,
	})
	if out.Truncated {
		p.log.Warn("visit budget exhausted, promotion partial", "pos", trigger, "max_visits", p.cfg.MaxVisits)
	}
	if out.Changed > 0 {
		p.log.Debug("pile promoted", "pos", trigger, "tier", out.Tier, "changed", out.Changed)
	}
	return out, nil
}
