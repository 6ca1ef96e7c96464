package main

import (
	"testing"

	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

func TestReplayAudit(t *testing.T) {
	chunks := store.NewChunkStore(store.Bounds{BoundaryR: 64, Height: 32})
	chunks.SetBlock(1, 1, 1, 7) // already written before the snapshot was taken

	entries := []world.AuditEntry{
		{Tick: 4, Action: "SET_BLOCK", Pos: [3]int{9, 9, 9}, From: 0, To: 3}, // before snapshot
		{Tick: 5, Action: "SET_BLOCK", Pos: [3]int{1, 1, 1}, From: 0, To: 7},
		{Tick: 5, Action: "SET_BLOCK", Pos: [3]int{2, 1, 1}, From: 0, To: 7},
		{Tick: 6, Action: "SET_BLOCK", Pos: [3]int{2, 1, 1}, From: 7, To: 12},
		{Tick: 9, Action: "SET_BLOCK", Pos: [3]int{3, 1, 1}, From: 0, To: 12},
	}
	st, err := replayAudit(chunks, entries, 5, 6)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if st.Applied != 2 || st.AlreadyApplied != 1 || st.LastTick != 6 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if got := chunks.GetBlock(2, 1, 1); got != 12 {
		t.Fatalf("block = %d", got)
	}
	if got := chunks.GetBlock(9, 9, 9); got != 0 {
		t.Fatalf("pre-snapshot entry applied: %d", got)
	}
}

func TestReplayAudit_DetectsDivergence(t *testing.T) {
	chunks := store.NewChunkStore(store.Bounds{BoundaryR: 64, Height: 32})
	entries := []world.AuditEntry{
		{Tick: 8, Action: "SET_BLOCK", Pos: [3]int{0, 0, 0}, From: 5, To: 12},
	}
	if _, err := replayAudit(chunks, entries, 5, 0); err == nil {
		t.Fatalf("expected divergence error")
	}
}
