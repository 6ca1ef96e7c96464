package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "120.snap.zst")
	blocks := make([]uint16, 16*16*16)
	blocks[0] = 7
	blocks[4095] = 3
	in := SnapshotV1{
		Header:        Header{Version: Version, WorldID: "world_1", Tick: 120, Digest: "abc"},
		Seed:          42,
		TickRate:      5,
		Height:        256,
		PaletteDigest: "pal",
		Pit:           PitV1{MaxVolume: 64, MaxTier: 8},
		Promotion:     PromotionV1{IdealTier: 8, Family: "charcoalpile", Domain: "game"},
		Chunks:        []ChunkV1{{CX: -1, CY: 0, CZ: 2, Size: 16, Blocks: blocks}},
		Counters:      CountersV1{Conversions: 3, Promotions: 3},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	hdr, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr != in.Header {
		t.Fatalf("header = %+v", hdr)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v9.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 9}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
