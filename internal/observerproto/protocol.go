package observerproto

// Version is the observer protocol version (separate from the command WS protocol).
const Version = "0.2"

const (
	TypeSubscribe   = "SUBSCRIBE"
	TypePromotion   = "PROMOTION"
	TypeBlockChange = "BLOCK_CHANGE"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Aborted runs are only forwarded when set.
	IncludeAborted bool `json:"include_aborted,omitempty"`
	// Per-cell block changes are only forwarded when set.
	IncludeBlocks bool `json:"include_blocks,omitempty"`
	// Promotions that rewrote fewer cells are skipped.
	MinChanged int `json:"min_changed,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []string    `json:"block_palette"`
	Promotion       Promotion   `json:"promotion"`
	Conversions     uint64      `json:"conversions"`
	Promotions      uint64      `json:"promotions"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [3]int `json:"chunk_size"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	BoundaryR  int    `json:"boundary_r"`
}

// Promotion is the promoter configuration in effect.
type Promotion struct {
	Enabled   bool   `json:"enabled"`
	Family    string `json:"family"`
	IdealTier int    `json:"ideal_tier"`
	MaxVisits int    `json:"max_visits,omitempty"`
}

// Server -> Client. One per promotion run.
type PromotionMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Tick            uint64 `json:"tick"`
	Pos             [3]int `json:"pos"`
	Trigger         string `json:"trigger"`
	Tier            int    `json:"tier"`
	Target          string `json:"target,omitempty"`
	Fallback        bool   `json:"fallback,omitempty"`
	Changed         int    `json:"changed"`
	Members         int    `json:"members"`
	Truncated       bool   `json:"truncated,omitempty"`
	Aborted         bool   `json:"aborted,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Server -> Client. One per block write.
type BlockChangeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Pos             [3]int `json:"pos"`
	From            uint16 `json:"from"`
	To              uint16 `json:"to"`
	Actor           string `json:"actor"`
	RunID           string `json:"run_id,omitempty"`
}
