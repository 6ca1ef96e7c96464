package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voxelpile.ai/internal/protocol"
	"voxelpile.ai/internal/sim/pile"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

const (
	commandTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		world: w,
		log:   logger.WithPrefix("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler serves the command websocket: HELLO, then any number of
// CONVERT/PLACE/PROMOTE messages, each answered by one RESULT.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxBodyBytes)

		sid := s.handshake(conn)
		if sid == "" {
			return
		}
		logger := s.log.With("session", sid)
		logger.Debug("session started")

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				_ = writeJSON(conn, failure("", protocol.ErrProtoBadRequest, "invalid json"))
				continue
			}
			res := s.Dispatch(r.Context(), base.Type, msg)
			if err := writeJSON(conn, res); err != nil {
				break
			}
		}
		logger.Debug("session ended")
	}
}

func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello || protocol.Validate(protocol.TypeHello, msg) != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}
	if base.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}

	sid := fmt.Sprintf("S%d", s.nextID.Add(1))
	if err := writeJSON(conn, s.Welcome(sid)); err != nil {
		return ""
	}
	return sid
}

// Welcome describes the world to a new session.
func (s *Server) Welcome(sessionID string) protocol.WelcomeMsg {
	cfg := s.world.Config()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         cfg.ID,
		WorldParams: protocol.WorldParams{
			TickRateHz: cfg.TickRateHz,
			ChunkSize:  [3]int{store.ChunkSize, store.ChunkSize, store.ChunkSize},
			Height:     cfg.Height,
			Seed:       cfg.Seed,
			BoundaryR:  cfg.BoundaryR,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPaletteDigest: s.world.PaletteDigest(),
			BlockPalette:       s.world.BlockPalette(),
		},
	}
}

// Dispatch validates one raw command, forwards it to the world loop and
// builds the RESULT message.
func (s *Server) Dispatch(ctx context.Context, typ string, raw []byte) protocol.ResultMsg {
	if err := protocol.Validate(typ, raw); err != nil {
		return failure("", protocol.ErrProtoBadRequest, err.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch typ {
	case protocol.TypeConvert:
		var m protocol.ConvertMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return failure("", protocol.ErrBadRequest, err.Error())
		}
		ev, err := s.world.RequestConvert(ctx, vec(m.Pos))
		if err != nil {
			return s.fail(m.ReqID, err)
		}
		res := success(m.ReqID)
		res.Converted = ev.Converted
		if ev.Promotion != nil {
			res.Promotion = promotionInfo(*ev.Promotion)
		}
		return res

	case protocol.TypePlace:
		var m protocol.PlaceMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return failure("", protocol.ErrBadRequest, err.Error())
		}
		blocks := make([]world.PlaceBlock, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			blocks = append(blocks, world.PlaceBlock{Pos: vec(b.Pos), Block: b.Block})
		}
		n, err := s.world.RequestPlace(ctx, blocks)
		if err != nil {
			res := s.fail(m.ReqID, err)
			res.Placed = n
			return res
		}
		res := success(m.ReqID)
		res.Placed = n
		return res

	case protocol.TypePromote:
		var m protocol.PromoteMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return failure("", protocol.ErrBadRequest, err.Error())
		}
		rec, err := s.world.RequestPromote(ctx, vec(m.Pos))
		if err != nil {
			res := s.fail(m.ReqID, err)
			if rec.RunID != "" {
				res.Promotion = promotionInfo(rec)
			}
			return res
		}
		res := success(m.ReqID)
		res.Promotion = promotionInfo(rec)
		return res

	default:
		return failure("", protocol.ErrProtoBadRequest, "unsupported type: "+typ)
	}
}

// CommandHandler exposes one command type over plain HTTP POST.
func (s *Server) CommandHandler(typ string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(rw, "read body", http.StatusBadRequest)
			return
		}
		res := s.Dispatch(r.Context(), typ, raw)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(HTTPStatus(res.Code))
		_ = json.NewEncoder(rw).Encode(res)
	}
}

func (s *Server) fail(reqID string, err error) protocol.ResultMsg {
	code := ErrorCode(err)
	if code == protocol.ErrInternal {
		s.log.Error("command failed", "req_id", reqID, "err", err)
	}
	return failure(reqID, code, err.Error())
}

// ErrorCode maps world errors onto protocol codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrNotPit):
		return protocol.ErrNotPit
	case errors.Is(err, world.ErrNoPileVariants):
		return protocol.ErrNoVariants
	case errors.Is(err, pile.ErrNoTargetAvailable):
		return protocol.ErrNoTarget
	case errors.Is(err, world.ErrPromotionDisabled):
		return protocol.ErrDisabled
	case errors.Is(err, world.ErrUnknownBlock):
		return protocol.ErrUnknownBlock
	case errors.Is(err, world.ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return protocol.ErrWorldBusy
	default:
		return protocol.ErrInternal
	}
}

func HTTPStatus(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case protocol.ErrProtoBadRequest, protocol.ErrBadRequest, protocol.ErrUnknownBlock, protocol.ErrOutOfBounds:
		return http.StatusBadRequest
	case protocol.ErrNotPit, protocol.ErrNoVariants, protocol.ErrNoTarget, protocol.ErrDisabled:
		return http.StatusConflict
	case protocol.ErrWorldBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func success(reqID string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: reqID, OK: true}
}

func failure(reqID, code, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: reqID, Code: code, Message: msg}
}

func promotionInfo(r world.PromotionRecord) *protocol.PromotionInfo {
	return &protocol.PromotionInfo{
		RunID:     r.RunID,
		Tier:      r.Tier,
		Target:    r.Target,
		Fallback:  r.Fallback,
		Clamped:   r.Clamped,
		Changed:   r.Changed,
		Members:   r.Members,
		Truncated: r.Truncated,
		Aborted:   r.Aborted,
		Reason:    r.Reason,
	}
}

func vec(p [3]int) world.Vec3i { return world.Vec3i{X: p[0], Y: p[1], Z: p[2]} }

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
