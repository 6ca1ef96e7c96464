package world

import (
	"testing"

	"voxelpile.ai/internal/sim/catalogs"
)

type memAudit struct {
	entries []AuditEntry
}

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memSink struct {
	recs []PromotionRecord
}

func (m *memSink) WritePromotion(r PromotionRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func newTestWorld(t *testing.T, mutate func(*WorldConfig)) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	cfg := WorldConfig{
		ID:         "test",
		TickRateHz: 5,
		Height:     64,
		Seed:       1,
		BoundaryR:  256,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func mustSet(t *testing.T, w *World, p Vec3i, code string) {
	t.Helper()
	if err := w.SetBlockCode(p, code); err != nil {
		t.Fatalf("SetBlockCode(%v,%s): %v", p, code, err)
	}
}

// buildKiln places a pit at (0,10,0) with a 3x2x3 block of firewood beside it
// (x 1..3, y 10..11, z -1..1). Returns the fuel positions.
func buildKiln(t *testing.T, w *World) []Vec3i {
	t.Helper()
	pit := Vec3i{Y: 10}
	mustSet(t, w, pit, "charcoalpit")
	var fuel []Vec3i
	for x := 1; x <= 3; x++ {
		for y := 10; y <= 11; y++ {
			for z := -1; z <= 1; z++ {
				p := Vec3i{X: x, Y: y, Z: z}
				mustSet(t, w, p, "firewood")
				fuel = append(fuel, p)
			}
		}
	}
	return fuel
}
