package main

import (
	"testing"

	persistlog "voxelpile.ai/internal/persistence/log"
	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

func TestRollback_RevertsOneRun(t *testing.T) {
	dir := t.TempDir()
	audit := persistlog.NewAuditLogger(dir)
	entries := []world.AuditEntry{
		{Tick: 3, Action: "SET_BLOCK", Pos: [3]int{0, 1, 0}, From: 0, To: 5, Actor: "PIT"},
		{Tick: 3, Action: "SET_BLOCK", Pos: [3]int{0, 1, 0}, From: 5, To: 12, Actor: "PROMOTER", RunID: "r1"},
		{Tick: 3, Action: "SET_BLOCK", Pos: [3]int{17, 1, 0}, From: 6, To: 12, Actor: "PROMOTER", RunID: "r1"},
		{Tick: 4, Action: "SET_BLOCK", Pos: [3]int{5, 1, 5}, From: 0, To: 2, Actor: "WORLD"},
	}
	for _, e := range entries {
		if err := audit.WriteAudit(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := audit.Close(); err != nil {
		t.Fatal(err)
	}

	chunks := store.NewChunkStore(store.Bounds{BoundaryR: 64, Height: 32})
	chunks.SetBlock(0, 1, 0, 12)
	chunks.SetBlock(17, 1, 0, 12)
	chunks.SetBlock(5, 1, 5, 2)
	snap := snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: snapshot.Version, Tick: 10, Digest: chunks.Digest()},
		Height:    32,
		BoundaryR: 64,
		Chunks:    store.ExportLoadedChunks(chunks.Chunks, chunks.LoadedChunkKeys()),
	}

	recs, err := readAudit(dir+"/audit", auditFilter{RunID: "r1", ToTick: 10})
	if err != nil {
		t.Fatalf("readAudit: %v", err)
	}
	if len(recs) != 2 || recs[0].Entry.Pos != [3]int{17, 1, 0} {
		t.Fatalf("unexpected records %+v", recs)
	}
	applied, skipped, err := applyRollback(&snap, recs)
	if err != nil || applied != 2 || skipped != 0 {
		t.Fatalf("applied=%d skipped=%d err=%v", applied, skipped, err)
	}

	got, err := store.ImportChunks(store.Bounds{BoundaryR: 64, Height: 32}, snap.Chunks)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.GetBlock(0, 1, 0) != 5 || got.GetBlock(17, 1, 0) != 6 || got.GetBlock(5, 1, 5) != 2 {
		t.Fatalf("rollback result wrong: %d %d %d", got.GetBlock(0, 1, 0), got.GetBlock(17, 1, 0), got.GetBlock(5, 1, 5))
	}
	if snap.Header.Digest != got.Digest() {
		t.Fatalf("header digest not updated")
	}
}

func TestParseAABB(t *testing.T) {
	min, max, err := parseAABB("5,0,-3:1,10,3")
	if err != nil {
		t.Fatal(err)
	}
	if min != [3]int{1, 0, -3} || max != [3]int{5, 10, 3} {
		t.Fatalf("min=%v max=%v", min, max)
	}
	if _, _, err := parseAABB("1,2:3,4"); err == nil {
		t.Fatalf("expected error")
	}
}
