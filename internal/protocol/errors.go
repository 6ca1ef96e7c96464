package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Command layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNotPit       = "E_NOT_PIT"
	ErrNoVariants   = "E_NO_VARIANTS"
	ErrNoTarget     = "E_NO_TARGET"
	ErrDisabled     = "E_DISABLED"
	ErrUnknownBlock = "E_UNKNOWN_BLOCK"
	ErrOutOfBounds  = "E_OUT_OF_BOUNDS"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrBadRequest:      {},
	ErrNotPit:          {},
	ErrNoVariants:      {},
	ErrNoTarget:        {},
	ErrDisabled:        {},
	ErrUnknownBlock:    {},
	ErrOutOfBounds:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
