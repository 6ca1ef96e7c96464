package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/tuning"
	"voxelpile.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the JSONL logs and
// snapshots. Writes are queued and applied by a single goroutine; when the
// queue is full entries are dropped.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqPromotion
	reqSnapshot
)

type req struct {
	kind reqKind

	audit     world.AuditEntry
	promotion world.PromotionRecord
	snapshot  SnapshotRow
}

// SnapshotRow is one indexed snapshot file.
type SnapshotRow struct {
	Tick        uint64
	Path        string
	Seed        int64
	Height      int
	Chunks      int
	Blocks      int
	Conversions uint64
	Promotions  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_block INTEGER NOT NULL,
			to_block INTEGER NOT NULL,
			reason TEXT,
			run_id TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_run ON audits(run_id);`,
		`CREATE TABLE IF NOT EXISTS promotions (
			run_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			trigger TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			tier INTEGER NOT NULL,
			target TEXT,
			fallback INTEGER NOT NULL,
			changed INTEGER NOT NULL,
			members INTEGER NOT NULL,
			truncated INTEGER NOT NULL,
			aborted INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_promotions_tick ON promotions(tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			height INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			conversions INTEGER NOT NULL,
			promotions INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	select {
	case s.ch <- r:
	default:
		// JSONL logs remain the source of truth.
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

func (s *SQLiteIndex) WritePromotion(rec world.PromotionRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqPromotion, promotion: rec})
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	blocks := 0
	for _, c := range snap.Chunks {
		for _, b := range c.Blocks {
			if b != 0 {
				blocks++
			}
		}
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: SnapshotRow{
		Tick:        snap.Header.Tick,
		Path:        path,
		Seed:        snap.Seed,
		Height:      snap.Height,
		Chunks:      len(snap.Chunks),
		Blocks:      blocks,
		Conversions: snap.Counters.Conversions,
		Promotions:  snap.Counters.Promotions,
	}})
}

// LatestSnapshot returns the indexed snapshot with the highest tick.
// ok is false when none has been indexed yet.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (row SnapshotRow, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT tick,path,seed,height,chunks,blocks,conversions,promotions FROM snapshots ORDER BY tick DESC LIMIT 1`,
	).Scan(&row.Tick, &row.Path, &row.Seed, &row.Height, &row.Chunks, &row.Blocks, &row.Conversions, &row.Promotions)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRow{}, false, nil
	}
	if err != nil {
		return SnapshotRow{}, false, err
	}
	return row, true, nil
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,z,from_block,to_block,reason,run_id,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertPromotion, _ := s.db.Prepare(`INSERT OR REPLACE INTO promotions(run_id,world_id,tick,trigger,x,y,z,tier,target,fallback,changed,members,truncated,aborted,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,height,chunks,blocks,conversions,promotions) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertPromotion, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				_, err = tx.Stmt(insertAudit).Exec(
					int64(a.Tick), seq, a.Actor, a.Action,
					a.Pos[0], a.Pos[1], a.Pos[2],
					int64(a.From), int64(a.To),
					a.Reason, a.RunID, string(raw),
				)
			}

		case reqPromotion:
			p := r.promotion
			raw, _ := json.Marshal(p)
			if insertPromotion != nil {
				_, err = tx.Stmt(insertPromotion).Exec(
					p.RunID, p.WorldID, int64(p.Tick), p.Trigger,
					p.Pos[0], p.Pos[1], p.Pos[2],
					p.Tier, p.Target, boolInt(p.Fallback),
					p.Changed, p.Members, boolInt(p.Truncated),
					boolInt(p.Aborted), p.Reason, string(raw),
				)
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				_, err = tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick), sn.Path, sn.Seed, sn.Height,
					sn.Chunks, sn.Blocks,
					int64(sn.Conversions), int64(sn.Promotions),
				)
			}
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
