package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelpile.ai/internal/persistence/indexdb"
	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/tuning"
	"voxelpile.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditLogger
	world.PromotionSink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	LatestSnapshot(ctx context.Context) (indexdb.SnapshotRow, bool, error)
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VP_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported VP_INDEX_BACKEND: %s", backend)
	}
}
