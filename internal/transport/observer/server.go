package observer

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voxelpile.ai/internal/observerproto"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

// Server streams promotion runs and block changes to read-only observers.
// It is registered on the world as a PromotionSink and an AuditLogger;
// fan-out never blocks the world loop, slow sessions lose messages.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session
	dropped  atomic.Uint64
}

type session struct {
	out chan []byte
	sub observerproto.SubscribeMsg
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		world:    w,
		log:      logger.WithPrefix("observer"),
		sessions: map[string]*session{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            s.world.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz: cfg.TickRateHz,
				ChunkSize:  [3]int{store.ChunkSize, store.ChunkSize, store.ChunkSize},
				Height:     cfg.Height,
				Seed:       cfg.Seed,
				BoundaryR:  cfg.BoundaryR,
			},
			BlockPalette: s.world.BlockPalette(),
			Promotion: observerproto.Promotion{
				Enabled:   !cfg.Promotion.Disabled,
				Family:    cfg.Promotion.PileConfig().Family.QualifiedPrefix(),
				IdealTier: cfg.Promotion.IdealTier,
				MaxVisits: cfg.Promotion.MaxVisits,
			},
			Conversions: s.world.Conversions(),
			Promotions:  s.world.Promotions(),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 256)
		s.mu.Lock()
		s.sessions[sid] = &session{out: out, sub: sub}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sid)
			s.mu.Unlock()
		}()
		s.log.Debug("observer joined", "session", sid)

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-done:
					writeErr <- nil
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			s.mu.Lock()
			if sess := s.sessions[sid]; sess != nil {
				sess.sub = sub
			}
			s.mu.Unlock()
		}

		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

// Sessions reports the number of connected observers.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dropped reports messages discarded because a session was not keeping up.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) WritePromotion(rec world.PromotionRecord) error {
	b, err := json.Marshal(observerproto.PromotionMsg{
		Type:            observerproto.TypePromotion,
		ProtocolVersion: observerproto.Version,
		RunID:           rec.RunID,
		Tick:            rec.Tick,
		Pos:             rec.Pos,
		Trigger:         rec.Trigger,
		Tier:            rec.Tier,
		Target:          rec.Target,
		Fallback:        rec.Fallback,
		Changed:         rec.Changed,
		Members:         rec.Members,
		Truncated:       rec.Truncated,
		Aborted:         rec.Aborted,
		Reason:          rec.Reason,
	})
	if err != nil {
		return err
	}
	s.broadcast(b, func(sub observerproto.SubscribeMsg) bool {
		if rec.Aborted {
			return sub.IncludeAborted
		}
		return rec.Changed >= sub.MinChanged
	})
	return nil
}

func (s *Server) WriteAudit(e world.AuditEntry) error {
	b, err := json.Marshal(observerproto.BlockChangeMsg{
		Type:            observerproto.TypeBlockChange,
		ProtocolVersion: observerproto.Version,
		Tick:            e.Tick,
		Pos:             e.Pos,
		From:            e.From,
		To:              e.To,
		Actor:           e.Actor,
		RunID:           e.RunID,
	})
	if err != nil {
		return err
	}
	s.broadcast(b, func(sub observerproto.SubscribeMsg) bool { return sub.IncludeBlocks })
	return nil
}

func (s *Server) broadcast(b []byte, want func(observerproto.SubscribeMsg) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if !want(sess.sub) {
			continue
		}
		select {
		case sess.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.MinChanged < 0 {
		sub.MinChanged = 0
	}
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
