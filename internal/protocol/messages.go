package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [3]int `json:"chunk_size"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	BoundaryR  int    `json:"boundary_r"`
}

type CatalogDigests struct {
	BlockPaletteDigest string   `json:"block_palette_digest"`
	BlockPalette       []string `json:"block_palette,omitempty"`
}

// CONVERT (client -> server): burn the charcoal pit at Pos.
type ConvertMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// PLACE (client -> server)
type PlaceMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ReqID           string       `json:"req_id,omitempty"`
	Blocks          []PlaceEntry `json:"blocks"`
}

type PlaceEntry struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

// PROMOTE (client -> server): run the pile promoter with Pos as trigger.
type PromoteMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// RESULT (server -> client). Code is empty when OK.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Converted int            `json:"converted,omitempty"`
	Placed    int            `json:"placed,omitempty"`
	Promotion *PromotionInfo `json:"promotion,omitempty"`
}

type PromotionInfo struct {
	RunID     string `json:"run_id"`
	Tier      int    `json:"tier"`
	Target    string `json:"target,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
	Clamped   bool   `json:"clamped,omitempty"`
	Changed   int    `json:"changed"`
	Members   int    `json:"members"`
	Truncated bool   `json:"truncated,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
