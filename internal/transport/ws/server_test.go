package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"voxelpile.ai/internal/protocol"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/world"
)

func startWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "ws_test", TickRateHz: 20, Height: 64, Seed: 3, BoundaryR: 128}, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestHandler_CommandSession(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	roundTrip := func(req any, out any) {
		t.Helper()
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := conn.ReadJSON(out); err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	var welcome protocol.WelcomeMsg
	roundTrip(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"}, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.WorldID != "ws_test" || welcome.SessionID == "" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	if welcome.Catalogs.BlockPaletteDigest == "" || welcome.Catalogs.BlockPalette[0] != "game:air" {
		t.Fatalf("unexpected catalogs %+v", welcome.Catalogs)
	}

	var res protocol.ResultMsg
	roundTrip(protocol.PlaceMsg{
		Type: protocol.TypePlace, ProtocolVersion: protocol.Version, ReqID: "p1",
		Blocks: []protocol.PlaceEntry{
			{Pos: [3]int{0, 5, 0}, Block: "charcoalpit"},
			{Pos: [3]int{0, 5, 1}, Block: "firewood"},
			{Pos: [3]int{0, 5, 2}, Block: "log-oak"},
		},
	}, &res)
	if !res.OK || res.ReqID != "p1" || res.Placed != 3 {
		t.Fatalf("place result %+v", res)
	}

	res = protocol.ResultMsg{}
	roundTrip(protocol.ConvertMsg{Type: protocol.TypeConvert, ProtocolVersion: protocol.Version, ReqID: "c1", Pos: [3]int{0, 5, 0}}, &res)
	if !res.OK || res.Converted != 3 || res.Promotion == nil {
		t.Fatalf("convert result %+v", res)
	}
	if res.Promotion.Target != "game:charcoalpile-8" || res.Promotion.Members != 2 {
		t.Fatalf("promotion %+v", res.Promotion)
	}

	res = protocol.ResultMsg{}
	roundTrip(protocol.ConvertMsg{Type: protocol.TypeConvert, ProtocolVersion: protocol.Version, ReqID: "c2", Pos: [3]int{0, 5, 0}}, &res)
	if res.OK || res.Code != protocol.ErrNotPit || res.ReqID != "c2" {
		t.Fatalf("expected E_NOT_PIT, got %+v", res)
	}

	res = protocol.ResultMsg{}
	roundTrip(map[string]any{"type": protocol.TypePromote, "protocol_version": protocol.Version, "pos": []int{1}}, &res)
	if res.OK || res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected schema rejection, got %+v", res)
	}
}

func TestHandler_RejectsBadHello(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestCommandHandler_HTTP(t *testing.T) {
	w := startWorld(t)
	s := NewServer(w, nil)

	cases := []struct {
		name   string
		typ    string
		method string
		body   string
		status int
		code   string
	}{
		{"not pit", protocol.TypeConvert, http.MethodPost, `{"type":"CONVERT","protocol_version":"1.0","pos":[9,9,9]}`, http.StatusConflict, protocol.ErrNotPit},
		{"unknown block", protocol.TypePlace, http.MethodPost, `{"type":"PLACE","protocol_version":"1.0","blocks":[{"pos":[0,0,0],"block":"game:gold"}]}`, http.StatusBadRequest, protocol.ErrUnknownBlock},
		{"out of bounds", protocol.TypePlace, http.MethodPost, `{"type":"PLACE","protocol_version":"1.0","blocks":[{"pos":[0,500,0],"block":"stone"}]}`, http.StatusBadRequest, protocol.ErrOutOfBounds},
		{"bad body", protocol.TypePromote, http.MethodPost, `{"type":"PROMOTE"}`, http.StatusBadRequest, protocol.ErrProtoBadRequest},
		{"manual promote", protocol.TypePromote, http.MethodPost, `{"type":"PROMOTE","protocol_version":"1.0","pos":[0,0,0]}`, http.StatusOK, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(c.method, "/v1/"+strings.ToLower(c.typ), strings.NewReader(c.body))
			rec := httptest.NewRecorder()
			s.CommandHandler(c.typ)(rec, req)
			if rec.Code != c.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, c.status, rec.Body.String())
			}
			var res protocol.ResultMsg
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Code != c.code || res.OK != (c.code == "") {
				t.Fatalf("result %+v, want code %q", res, c.code)
			}
		})
	}

	rec := httptest.NewRecorder()
	s.CommandHandler(protocol.TypeConvert)(rec, httptest.NewRequest(http.MethodGet, "/v1/convert", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
}
