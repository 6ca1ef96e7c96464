package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voxelpile.ai/internal/metrics"
	persistlog "voxelpile.ai/internal/persistence/log"
	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/protocol"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/tuning"
	"voxelpile.ai/internal/sim/world"
	"voxelpile.ai/internal/transport/observer"
	"voxelpile.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (audit/promotions + catalogs + snapshot metadata)")
		logLevel   = flag.String("log_level", "info", "log level (debug, info, warn, error)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.StampMicro,
		Prefix:          "server",
	})
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", *logLevel)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", "err", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatal("open index backend", "err", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir, idx)
	}

	// Load tuning (required for fresh world; optional for snapshot resumes).
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatal("load tuning", "err", tuneErr)
		}
		// Resume fallback: the snapshot carries the effective world parameters.
		logger.Warn("tuning not found, using defaults", "path", tp)
		tune = tuning.Defaults()
	}

	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Warn("index backend: upsert catalogs", "err", err)
		}
	}

	// Create world (fresh or resumed from snapshot).
	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatal("read snapshot", "err", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatal("snapshot world id mismatch", "flag", *worldID, "snap", snap.Header.WorldID)
		}
		cfg := world.ConfigFromSnapshot(snap, tune.SnapshotEveryTicks)
		cfg.ID = *worldID
		w, err = world.New(cfg, cats, logger)
		if err != nil {
			logger.Fatal("world", "err", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatal("import snapshot", "err", err)
		}
		logger.Info("resumed from snapshot", "snapshot", filepath.Base(snapshotToLoad), "tick", w.CurrentTick())
	} else {
		w, err = world.New(world.ConfigFromTuning(*worldID, *seed, tune), cats, logger)
		if err != nil {
			logger.Fatal("world", "err", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	coll := metrics.NewCollector(reg, w)
	obsSrv := observer.NewServer(w, logger)

	auditLog := persistlog.NewAuditLogger(worldDir)
	promoLog := persistlog.NewPromotionLogger(worldDir)
	defer auditLog.Close()
	defer promoLog.Close()

	audits := multiAuditLogger{auditLog, obsSrv}
	if idx != nil {
		audits = append(audits, idx)
		w.AddPromotionSink(idx)
	}
	w.SetAuditLogger(audits)
	w.AddPromotionSink(promoLog)
	w.AddPromotionSink(coll)
	w.AddPromotionSink(obsSrv)
	w.Subscribe(coll.OnConversion)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Error("snapshot write", "err", err)
					continue
				}
				logger.Debug("snapshot written", "path", path, "chunks", len(snap.Chunks))
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", "err", err)
		}
	}()

	cmdSrv := ws.NewServer(w, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/v1/ws", cmdSrv.Handler())
	mux.HandleFunc("/v1/blocks", cmdSrv.CommandHandler(protocol.TypePlace))
	mux.HandleFunc("/v1/convert", cmdSrv.CommandHandler(protocol.TypeConvert))
	mux.HandleFunc("/v1/promote", cmdSrv.CommandHandler(protocol.TypePromote))
	mux.HandleFunc("/v1/welcome", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(cmdSrv.Welcome(""))
	})

	enableAdminHTTP := envBool("VP_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VP_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			snap, err := w.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": snap.Header.Tick, "path": path})
		})
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Info("admin endpoints disabled (VP_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", "addr", *addr, "world", *worldID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("ListenAndServe", "err", err)
	}
	<-worldDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot prefers the index and falls back to scanning the snapshot dir.
func latestSnapshot(worldDir string, idx runtimeIndex) string {
	if idx != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if row, ok, err := idx.LatestSnapshot(ctx); err == nil && ok {
			if _, err := os.Stat(row.Path); err == nil {
				return row.Path
			}
		}
	}
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

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiAuditLogger []world.AuditLogger

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	var first error
	for _, l := range m {
		if err := l.WriteAudit(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
