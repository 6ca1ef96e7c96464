package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelpile.ai/internal/observerproto"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/world"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "obs", Height: 64, BoundaryR: 64}, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestBootstrapHandler(t *testing.T) {
	s := NewServer(newWorld(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/observer/bootstrap", nil)
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-loopback status = %d", rec.Code)
	}

	req.RemoteAddr = "127.0.0.1:40000"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldID != "obs" || !resp.Promotion.Enabled || resp.Promotion.Family != "game:charcoalpile" || resp.Promotion.IdealTier != 8 {
		t.Fatalf("unexpected bootstrap %+v", resp)
	}
	if len(resp.BlockPalette) == 0 || resp.BlockPalette[0] != "game:air" {
		t.Fatalf("palette %v", resp.BlockPalette)
	}
}

func TestWSHandler_StreamsFilteredEvents(t *testing.T) {
	s := NewServer(newWorld(t), nil)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		IncludeBlocks:   true,
		MinChanged:      2,
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.Sessions() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Filtered out: too small, then aborted.
	_ = s.WritePromotion(world.PromotionRecord{RunID: "small", Changed: 1})
	_ = s.WritePromotion(world.PromotionRecord{RunID: "aborted", Aborted: true, Reason: world.ReasonNoTarget})
	_ = s.WriteAudit(world.AuditEntry{Tick: 4, Actor: "PROMOTER", Pos: [3]int{1, 2, 3}, From: 5, To: 12, RunID: "big"})
	_ = s.WritePromotion(world.PromotionRecord{RunID: "big", Tick: 4, Changed: 3, Members: 3, Target: "game:charcoalpile-8"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var change observerproto.BlockChangeMsg
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if change.Type != observerproto.TypeBlockChange || change.To != 12 || change.RunID != "big" {
		t.Fatalf("unexpected change %+v", change)
	}
	var promo observerproto.PromotionMsg
	if err := conn.ReadJSON(&promo); err != nil {
		t.Fatalf("read promotion: %v", err)
	}
	if promo.Type != observerproto.TypePromotion || promo.RunID != "big" || promo.Changed != 3 {
		t.Fatalf("unexpected promotion %+v", promo)
	}
	if s.Dropped() != 0 {
		t.Fatalf("dropped %d", s.Dropped())
	}
}

func TestWSHandler_RequiresSubscribe(t *testing.T) {
	s := NewServer(newWorld(t), nil)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
