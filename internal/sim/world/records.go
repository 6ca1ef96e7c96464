package world

import "voxelpile.ai/internal/sim/pile"

type Vec3i = pile.Vec3i

func posArray(p Vec3i) [3]int { return [3]int{p.X, p.Y, p.Z} }

// Trigger sources of a promotion run.
const (
	TriggerConvert = "CONVERT"
	TriggerManual  = "MANUAL"
)

// Abort reasons of a promotion run.
const (
	ReasonNoTarget = "NO_TARGET"
)

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// PromotionSink receives one record per promotion run, including aborted runs.
type PromotionSink interface {
	WritePromotion(rec PromotionRecord) error
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // e.g. "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Reason string `json:"reason,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}

type PromotionRecord struct {
	RunID   string `json:"run_id"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Pos     [3]int `json:"pos"`
	Trigger string `json:"trigger"`

	Tier     int    `json:"tier"`
	Target   string `json:"target,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Clamped  bool   `json:"clamped,omitempty"`

	Changed   int  `json:"changed"`
	Members   int  `json:"members"`
	Cleared   bool `json:"cleared,omitempty"`
	Truncated bool `json:"truncated,omitempty"`

	Aborted bool   `json:"aborted,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ConversionEvent is published once per pit conversion. Handlers run in
// registration order inside the world loop; the built-in promotion handler
// runs first and fills Promotion.
type ConversionEvent struct {
	WorldID   string           `json:"world_id"`
	Tick      uint64           `json:"tick"`
	Pos       Vec3i            `json:"pos"`
	Converted int              `json:"converted"`
	Promotion *PromotionRecord `json:"promotion,omitempty"`
}

type ConversionHandler func(ev *ConversionEvent)
