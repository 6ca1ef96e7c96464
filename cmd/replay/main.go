package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	persistlog "voxelpile.ai/internal/persistence/log"
	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

// replay rolls a snapshot forward by re-applying the audit log and checks
// that every write starts from the block the log says it replaced.
func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		auditDir   = flag.String("audit", "", "audit dir containing audit-*.jsonl.zst (optional)")
		expectPath = flag.String("expect", "", "later snapshot whose state digest must match after replay (optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		outPath    = flag.String("out", "", "write the replayed state as a snapshot (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d height=%d chunks=%d conversions=%d promotions=%d digest=%s\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Height,
		len(snap.Chunks), snap.Counters.Conversions, snap.Counters.Promotions, snap.Header.Digest)

	if *auditDir == "" {
		return
	}

	chunks, err := store.ImportChunks(store.Bounds{BoundaryR: snap.BoundaryR, Height: snap.Height}, snap.Chunks)
	if err != nil {
		fmt.Fprintln(os.Stderr, "import chunks:", err)
		os.Exit(1)
	}

	files, err := filepath.Glob(filepath.Join(*auditDir, "audit-*.jsonl.zst"))
	if err != nil || len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files found in", *auditDir)
		os.Exit(1)
	}
	sort.Strings(files)

	var entries []world.AuditEntry
	for _, path := range files {
		es, err := persistlog.ReadJSONLZstd[world.AuditEntry](path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read audit:", err)
			os.Exit(1)
		}
		entries = append(entries, es...)
	}

	st, err := replayAudit(chunks, entries, snap.Header.Tick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	digest := chunks.Digest()
	fmt.Printf("replay ok: applied=%d already_applied=%d last_tick=%d digest=%s\n", st.Applied, st.AlreadyApplied, st.LastTick, digest)

	if *expectPath != "" {
		want, err := snapshot.ReadHeader(*expectPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read expected snapshot:", err)
			os.Exit(1)
		}
		if want.Digest != digest {
			fmt.Fprintf(os.Stderr, "digest mismatch: got=%s want=%s (tick=%d)\n", digest, want.Digest, want.Tick)
			os.Exit(1)
		}
		fmt.Printf("digest matches snapshot tick=%d\n", want.Tick)
	}

	if *outPath != "" {
		snap.Chunks = store.ExportLoadedChunks(chunks.Chunks, chunks.LoadedChunkKeys())
		snap.Header.Digest = digest
		snap.Header.Tick = st.LastTick
		if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
			fmt.Fprintln(os.Stderr, "write snapshot:", err)
			os.Exit(1)
		}
	}
}

type replayStats struct {
	Applied        int
	AlreadyApplied int
	LastTick       uint64
}

// replayAudit applies SET_BLOCK entries from fromTick on, in log order.
// Writes logged in the snapshot's own tick may predate it; those are
// accepted when the cell already holds the written block.
func replayAudit(chunks *store.ChunkStore, entries []world.AuditEntry, fromTick, toTick uint64) (replayStats, error) {
	st := replayStats{LastTick: fromTick}
	for i, e := range entries {
		if e.Action != "SET_BLOCK" || e.Tick < fromTick {
			continue
		}
		if toTick != 0 && e.Tick > toTick {
			break
		}
		x, y, z := e.Pos[0], e.Pos[1], e.Pos[2]
		cur := chunks.GetBlock(x, y, z)
		switch {
		case cur == e.From:
			chunks.SetBlock(x, y, z, e.To)
			st.Applied++
		case e.Tick == fromTick && cur == e.To:
			st.AlreadyApplied++
		default:
			return st, fmt.Errorf("entry %d tick=%d pos=%v: block is %d, log says %d", i, e.Tick, e.Pos, cur, e.From)
		}
		st.LastTick = e.Tick
	}
	return st, nil
}
