package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "voxelpile.ai/internal/persistence/log"
	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "promote":
			promoteCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// rollbackCmd reverts audited block writes on a snapshot, newest first.
func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path to rollback from (optional; defaults to latest)")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required unless -run)")
	runID := fs.String("run", "", "only revert writes of this promotion run id")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, optional; defaults to snapshot tick)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	if strings.TrimSpace(*aabb) == "" && strings.TrimSpace(*runID) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb or -run")
		os.Exit(2)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(snapshotToLoad)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	f := auditFilter{RunID: strings.TrimSpace(*runID), SinceTick: *sinceTick, ToTick: *toTick}
	if f.ToTick == 0 || f.ToTick > snap.Header.Tick {
		f.ToTick = snap.Header.Tick
	}
	if strings.TrimSpace(*aabb) != "" {
		min, max, err := parseAABB(*aabb)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
		f.AABB = &[2][3]int{min, max}
	}

	recs, err := readAudit(filepath.Join(worldDir, "audit"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}

	applied, skipped, err := applyRollback(&snap, recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.rollback.snap.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("rollback ok: snapshot=%s tick=%d entries=%d applied=%d skipped=%d out=%s\n",
		filepath.Base(snapshotToLoad), snap.Header.Tick, len(recs), applied, skipped, *outPath)
}

type auditFilter struct {
	RunID     string
	SinceTick uint64
	ToTick    uint64
	AABB      *[2][3]int
}

func (f auditFilter) match(e world.AuditEntry) bool {
	if e.Action != "SET_BLOCK" {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if e.Tick < f.SinceTick || (f.ToTick > 0 && e.Tick > f.ToTick) {
		return false
	}
	return f.AABB == nil || withinAABB(e.Pos, f.AABB[0], f.AABB[1])
}

type auditRec struct {
	Seq   uint64
	Entry world.AuditEntry
}

// readAudit returns matching entries in reverse chronological order.
func readAudit(dir string, f auditFilter) ([]auditRec, error) {
	files, err := filepath.Glob(filepath.Join(dir, "audit-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []auditRec
	var seq uint64
	for _, path := range files {
		entries, err := persistlog.ReadJSONLZstd[world.AuditEntry](path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			seq++
			if f.match(e) {
				out = append(out, auditRec{Seq: seq, Entry: e})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func applyRollback(snap *snapshot.SnapshotV1, recs []auditRec) (applied, skipped int, err error) {
	chunks, err := store.ImportChunks(store.Bounds{BoundaryR: snap.BoundaryR, Height: snap.Height}, snap.Chunks)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range recs {
		p := r.Entry.Pos
		if !chunks.SetBlock(p[0], p[1], p[2], r.Entry.From) {
			skipped++
			continue
		}
		applied++
	}
	snap.Chunks = store.ExportLoadedChunks(chunks.Chunks, chunks.LoadedChunkKeys())
	snap.Header.Digest = chunks.Digest()
	return applied, skipped, nil
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
