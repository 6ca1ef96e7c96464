package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"voxelpile.ai/internal/sim/catalogs"
	"voxelpile.ai/internal/sim/world"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "m1", Height: 32, BoundaryR: 32}, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestCollector_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, newWorld(t))

	recs := []world.PromotionRecord{
		{Trigger: world.TriggerConvert, Changed: 5, Members: 6},
		{Trigger: world.TriggerConvert, Changed: 0, Members: 2, Fallback: true},
		{Trigger: world.TriggerManual, Changed: 9, Members: 9, Truncated: true},
		{Trigger: world.TriggerManual, Aborted: true, Reason: world.ReasonNoTarget},
	}
	for _, r := range recs {
		if err := c.WritePromotion(r); err != nil {
			t.Fatalf("WritePromotion: %v", err)
		}
	}
	c.OnConversion(&world.ConversionEvent{Converted: 19})

	cases := []struct {
		trigger, outcome string
		want             float64
	}{
		{world.TriggerConvert, OutcomeChanged, 1},
		{world.TriggerConvert, OutcomeNoop, 1},
		{world.TriggerManual, OutcomeTruncated, 1},
		{world.TriggerManual, OutcomeAborted, 1},
		{world.TriggerManual, OutcomeChanged, 0},
	}
	for _, tc := range cases {
		if got := testutil.ToFloat64(c.promotions.WithLabelValues(tc.trigger, tc.outcome)); got != tc.want {
			t.Fatalf("%s/%s = %v, want %v", tc.trigger, tc.outcome, got, tc.want)
		}
	}
	if got := testutil.ToFloat64(c.fallbacks); got != 1 {
		t.Fatalf("fallbacks = %v", got)
	}
	if got := testutil.ToFloat64(c.conversions); got != 1 {
		t.Fatalf("conversions = %v", got)
	}
	if got := testutil.ToFloat64(c.convertedCells); got != 19 {
		t.Fatalf("converted cells = %v", got)
	}
	// Aborted runs are not observed.
	if n := testutil.CollectAndCount(c.changedCells); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}
}

func TestHandler_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, newWorld(t))
	_ = c.WritePromotion(world.PromotionRecord{Trigger: world.TriggerConvert, Changed: 2, Members: 2})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`voxelpile_promotions_total{outcome="changed",trigger="CONVERT",world="m1"} 1`,
		`voxelpile_world_tick{world="m1"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
