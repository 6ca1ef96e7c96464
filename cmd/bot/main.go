package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voxelpile.ai/internal/protocol"
)

// bot builds a kiln (a pit with a block of fuel beside it) over the command
// websocket, burns it, and reports the promotion result.
func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "kiln-bot", "client name")
		at    = flag.String("at", "0,64,0", "pit position x,y,z")
		size  = flag.Int("size", 3, "edge length of the fuel cube")
		fuel  = flag.String("fuel", "game:firewood", "fuel block code")
		pit   = flag.String("pit", "game:charcoalpit", "pit block code")
		again = flag.Bool("repromote", false, "run a manual promotion after the burn")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stdout, log.Options{ReportTimestamp: true, TimeFormat: time.StampMilli, Prefix: "bot"})

	origin, err := parseVec3(*at)
	if err != nil {
		logger.Fatal("bad -at", "err", err)
	}
	if *size <= 0 || *size*(*size)*(*size)+1 > 4096 {
		logger.Fatal("bad -size", "size", *size)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", "err", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal("send HELLO", "err", err)
	}
	var welcome protocol.WelcomeMsg
	if err := readTyped(conn, protocol.TypeWelcome, &welcome); err != nil {
		logger.Fatal("WELCOME", "err", err)
	}
	logger.Info("connected", "world", welcome.WorldID, "session", welcome.SessionID, "palette", welcome.Catalogs.BlockPaletteDigest)

	blocks := []protocol.PlaceEntry{{Pos: origin, Block: *pit}}
	for dx := 1; dx <= *size; dx++ {
		for dy := 0; dy < *size; dy++ {
			for dz := 0; dz < *size; dz++ {
				blocks = append(blocks, protocol.PlaceEntry{
					Pos:   [3]int{origin[0] + dx, origin[1] + dy, origin[2] + dz},
					Block: *fuel,
				})
			}
		}
	}

	res := command(conn, logger, protocol.PlaceMsg{Type: protocol.TypePlace, ProtocolVersion: protocol.Version, ReqID: "place", Blocks: blocks})
	logger.Info("placed", "blocks", res.Placed)

	res = command(conn, logger, protocol.ConvertMsg{Type: protocol.TypeConvert, ProtocolVersion: protocol.Version, ReqID: "convert", Pos: origin})
	logPromotion(logger, "converted", res)

	if *again {
		res = command(conn, logger, protocol.PromoteMsg{Type: protocol.TypePromote, ProtocolVersion: protocol.Version, ReqID: "promote", Pos: [3]int{origin[0] + 1, origin[1], origin[2]}})
		logPromotion(logger, "repromoted", res)
	}
}

func command(conn *websocket.Conn, logger *log.Logger, msg any) protocol.ResultMsg {
	if err := conn.WriteJSON(msg); err != nil {
		logger.Fatal("send", "err", err)
	}
	var res protocol.ResultMsg
	if err := readTyped(conn, protocol.TypeResult, &res); err != nil {
		logger.Fatal("RESULT", "err", err)
	}
	if !res.OK {
		logger.Fatal("command failed", "req_id", res.ReqID, "code", res.Code, "message", res.Message)
	}
	return res
}

func logPromotion(logger *log.Logger, msg string, res protocol.ResultMsg) {
	p := res.Promotion
	if p == nil {
		logger.Info(msg, "converted", res.Converted)
		return
	}
	logger.Info(msg, "converted", res.Converted, "run", p.RunID, "target", p.Target, "tier", p.Tier, "fallback", p.Fallback, "changed", p.Changed, "members", p.Members)
}

func readTyped(conn *websocket.Conn, typ string, out any) error {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return err
	}
	if base.Type != typ {
		return fmt.Errorf("expected %s, got %s", typ, base.Type)
	}
	return json.Unmarshal(msg, out)
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}
