package world

import (
	"context"
	"fmt"
	"time"
)

const maxPlacePerRequest = 4096

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.convert:
			ev, err := w.ConvertPit(req.Pos)
			reply(req.Resp, ConvertResponse{Event: ev, Err: err})
		case req := <-w.place:
			n, err := w.placeBlocks(req.Blocks)
			reply(req.Resp, PlaceResponse{Placed: n, Err: err})
		case req := <-w.promote:
			rec, err := w.PromoteAt(req.Pos, TriggerManual)
			reply(req.Resp, PromoteResponse{Record: rec, Err: err})
		case req := <-w.snapReq:
			reply(req.Resp, w.ExportSnapshot())
		case <-ticker.C:
			w.stepTick()
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

func (w *World) stepTick() {
	tick := w.tick.Add(1)
	if w.snapshotSink == nil || w.cfg.SnapshotEveryTicks <= 0 {
		return
	}
	if tick%uint64(w.cfg.SnapshotEveryTicks) != 0 {
		return
	}
	select {
	case w.snapshotSink <- w.ExportSnapshot():
	default:
		w.log.Warn("snapshot sink busy, skipping", "tick", tick)
	}
}

func (w *World) placeBlocks(blocks []PlaceBlock) (int, error) {
	if len(blocks) > maxPlacePerRequest {
		return 0, fmt.Errorf("too many blocks: %d > %d", len(blocks), maxPlacePerRequest)
	}
	for i, b := range blocks {
		if err := w.SetBlockCode(b.Pos, b.Block); err != nil {
			return i, err
		}
	}
	return len(blocks), nil
}

// RequestConvert sends a conversion to the world loop and waits for the result.
func (w *World) RequestConvert(ctx context.Context, pos Vec3i) (ConversionEvent, error) {
	resp := make(chan ConvertResponse, 1)
	if err := send(ctx, w.convert, ConvertRequest{Pos: pos, Resp: resp}); err != nil {
		return ConversionEvent{}, err
	}
	r, err := wait(ctx, resp)
	if err != nil {
		return ConversionEvent{}, err
	}
	return r.Event, r.Err
}

// RequestPlace sends block placements to the world loop and waits for the result.
func (w *World) RequestPlace(ctx context.Context, blocks []PlaceBlock) (int, error) {
	resp := make(chan PlaceResponse, 1)
	if err := send(ctx, w.place, PlaceRequest{Blocks: blocks, Resp: resp}); err != nil {
		return 0, err
	}
	r, err := wait(ctx, resp)
	if err != nil {
		return 0, err
	}
	return r.Placed, r.Err
}

// RequestPromote runs a manual promotion at pos through the world loop.
func (w *World) RequestPromote(ctx context.Context, pos Vec3i) (PromotionRecord, error) {
	resp := make(chan PromoteResponse, 1)
	if err := send(ctx, w.promote, PromoteRequest{Pos: pos, Resp: resp}); err != nil {
		return PromotionRecord{}, err
	}
	r, err := wait(ctx, resp)
	if err != nil {
		return PromotionRecord{}, err
	}
	return r.Record, r.Err
}

func send[T any](ctx context.Context, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wait[T any](ctx context.Context, ch chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
