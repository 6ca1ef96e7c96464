package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/pile"
	"voxelpile.ai/internal/sim/world"
)

// promoteCmd runs the pile promoter offline against a snapshot.
func promoteCmd(args []string) {
	fs := flag.NewFlagSet("promote", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used to find the latest snapshot)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	configDir := fs.String("configs", "./configs", "config directory")
	pos := fs.String("pos", "", "trigger position x,y,z (required)")
	idealTier := fs.Int("ideal_tier", 0, "override the configured ideal tier (optional)")
	maxVisits := fs.Int("max_visits", -1, "override the configured visit budget (optional)")
	outPath := fs.String("out", "", "output snapshot path (optional; dry run when empty)")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	p, err := parseVec3(*pos)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -pos:", err)
		os.Exit(2)
	}
	path := strings.TrimSpace(*snapPath)
	if path == "" && strings.TrimSpace(*worldID) != "" {
		path = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -world")
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: time.Kitchen})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		logger.Fatal("read snapshot", "err", err)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", "err", err)
	}

	cfg := world.ConfigFromSnapshot(snap, 0)
	cfg.Promotion.Disabled = false
	if *idealTier != 0 {
		cfg.Promotion.IdealTier = *idealTier
	}
	if *maxVisits >= 0 {
		cfg.Promotion.MaxVisits = *maxVisits
	}
	w, err := world.New(cfg, cats, logger)
	if err != nil {
		logger.Fatal("world", "err", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		logger.Fatal("import snapshot", "err", err)
	}

	rec, err := w.PromoteAt(world.Vec3i{X: p[0], Y: p[1], Z: p[2]}, world.TriggerManual)
	printJSON(rec)
	if errors.Is(err, pile.ErrNoTargetAvailable) {
		os.Exit(3)
	}
	if err != nil {
		logger.Fatal("promote", "err", err)
	}

	if strings.TrimSpace(*outPath) == "" {
		logger.Info("dry run; snapshot not written", "changed", rec.Changed)
		return
	}
	out := w.ExportSnapshot()
	if err := snapshot.WriteSnapshot(*outPath, out); err != nil {
		logger.Fatal("write snapshot", "err", err)
	}
	logger.Info("snapshot written", "path", *outPath, "changed", rec.Changed, "digest", out.Header.Digest)
}
