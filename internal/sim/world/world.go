package world

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"voxelpile.ai/internal/persistence/snapshot"
	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/pile"
	"voxelpile.ai/internal/sim/world/terrain/store"
)

var (
	ErrNotPit            = errors.New("block at position is not a pit")
	ErrNoPileVariants    = errors.New("no pile variants in catalog")
	ErrPromotionDisabled = errors.New("promotion disabled")
	ErrUnknownBlock      = errors.New("unknown block")
	ErrOutOfBounds       = errors.New("position out of bounds")
)

type ConvertRequest struct {
	Pos  Vec3i
	Resp chan ConvertResponse
}

type ConvertResponse struct {
	Event ConversionEvent
	Err   error
}

type PlaceBlock struct {
	Pos   Vec3i  `json:"pos"`
	Block string `json:"block"`
}

type PlaceRequest struct {
	Blocks []PlaceBlock
	Resp   chan PlaceResponse
}

type PlaceResponse struct {
	Placed int
	Err    error
}

type PromoteRequest struct {
	Pos  Vec3i
	Resp chan PromoteResponse
}

type PromoteResponse struct {
	Record PromotionRecord
	Err    error
}

type SnapshotRequest struct {
	Resp chan snapshot.SnapshotV1
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger

	tick atomic.Uint64

	chunks *store.ChunkStore

	promoter *pile.Promoter
	handlers []ConversionHandler

	convert  chan ConvertRequest
	place    chan PlaceRequest
	promote  chan PromoteRequest
	snapReq  chan SnapshotRequest
	stop     chan struct{}
	stopOnce sync.Once

	conversions atomic.Uint64
	promotions  atomic.Uint64

	// Optional sinks (may be nil/empty). Implemented in internal/persistence/*,
	// internal/metrics and internal/transport/observer.
	auditLogger AuditLogger
	sinks       []PromotionSink

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, logger *log.Logger) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      logger.With("world", cfg.ID),
		chunks:   store.NewChunkStore(store.Bounds{BoundaryR: cfg.BoundaryR, Height: cfg.Height}),
		convert:  make(chan ConvertRequest, 64),
		place:    make(chan PlaceRequest, 64),
		promote:  make(chan PromoteRequest, 64),
		snapReq:  make(chan SnapshotRequest, 4),
		stop:     make(chan struct{}),
	}
	if !cfg.Promotion.Disabled {
		w.promoter = pile.NewPromoter(cfg.Promotion.PileConfig(), &cats.Blocks, w.log)
		w.Subscribe(w.promoteOnConversion)
	}
	return w, nil
}

func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// AddPromotionSink must be called before Run.
func (w *World) AddPromotionSink(s PromotionSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

// Subscribe registers a conversion handler. It must be called before Run.
func (w *World) Subscribe(h ConversionHandler) {
	if h != nil {
		w.handlers = append(w.handlers, h)
	}
}

func (w *World) Convert() chan<- ConvertRequest   { return w.convert }
func (w *World) Place() chan<- PlaceRequest       { return w.place }
func (w *World) Promote() chan<- PromoteRequest   { return w.promote }
func (w *World) Snapshot() chan<- SnapshotRequest { return w.snapReq }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig  { return w.cfg }
func (w *World) CurrentTick() uint64  { return w.tick.Load() }
func (w *World) Conversions() uint64  { return w.conversions.Load() }
func (w *World) Promotions() uint64   { return w.promotions.Load() }
func (w *World) BlockPalette() []string {
	out := make([]string, len(w.catalogs.Blocks.Palette))
	copy(out, w.catalogs.Blocks.Palette)
	return out
}

func (w *World) PaletteDigest() string { return w.catalogs.Blocks.PaletteDigest }

// StateDigest hashes the loaded chunks. Loop goroutine only.
func (w *World) StateDigest() string { return w.chunks.Digest() }

// BlockAt describes the block at p. Loop goroutine only.
func (w *World) BlockAt(p Vec3i) pile.Block {
	return gridView{w: w}.Get(p)
}

// SetBlockCode writes a block by catalog code. Loop goroutine only.
func (w *World) SetBlockCode(p Vec3i, code string) error {
	b, ok := w.catalogs.Blocks.Lookup(code)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, code)
	}
	if !w.chunks.InBounds(p.X, p.Y, p.Z) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	gridView{w: w, actor: "WORLD", reason: "PLACE"}.Set(p, b.ID)
	return nil
}
