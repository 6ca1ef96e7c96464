package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelpile.ai/internal/sim/world"
)

// Promotion outcomes used as the "outcome" label.
const (
	OutcomeChanged   = "changed"
	OutcomeNoop      = "noop"
	OutcomeTruncated = "truncated"
	OutcomeAborted   = "aborted"
)

// Collector exports pit conversion and pile promotion metrics for one world.
// It is registered on the world as a PromotionSink and a ConversionHandler.
type Collector struct {
	conversions    prometheus.Counter
	convertedCells prometheus.Counter
	promotions     *prometheus.CounterVec
	fallbacks      prometheus.Counter
	changedCells   prometheus.Histogram
	regionSize     prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer, w *world.World) *Collector {
	labels := prometheus.Labels{"world": w.ID()}
	c := &Collector{
		conversions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "voxelpile_pit_conversions_total",
			Help:        "Charcoal pit conversions.",
			ConstLabels: labels,
		}),
		convertedCells: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "voxelpile_pit_converted_cells_total",
			Help:        "Cells turned into pile blocks by pit conversions.",
			ConstLabels: labels,
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "voxelpile_promotions_total",
			Help:        "Pile promotion runs by outcome.",
			ConstLabels: labels,
		}, []string{"trigger", "outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "voxelpile_promotion_fallbacks_total",
			Help:        "Promotion runs that used a fallback tier.",
			ConstLabels: labels,
		}),
		changedCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "voxelpile_promotion_changed_cells",
			Help:        "Cells rewritten per promotion run.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
		regionSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "voxelpile_promotion_region_members",
			Help:        "Member cells visited per promotion run.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(
		c.conversions,
		c.convertedCells,
		c.promotions,
		c.fallbacks,
		c.changedCells,
		c.regionSize,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "voxelpile_world_tick",
			Help:        "Current world tick.",
			ConstLabels: labels,
		}, func() float64 { return float64(w.CurrentTick()) }),
	)
	return c
}

// OnConversion is a world.ConversionHandler.
func (c *Collector) OnConversion(ev *world.ConversionEvent) {
	c.conversions.Inc()
	c.convertedCells.Add(float64(ev.Converted))
}

func (c *Collector) WritePromotion(rec world.PromotionRecord) error {
	c.promotions.WithLabelValues(rec.Trigger, outcome(rec)).Inc()
	if rec.Aborted {
		return nil
	}
	if rec.Fallback {
		c.fallbacks.Inc()
	}
	c.changedCells.Observe(float64(rec.Changed))
	c.regionSize.Observe(float64(rec.Members))
	return nil
}

func outcome(rec world.PromotionRecord) string {
	switch {
	case rec.Aborted:
		return OutcomeAborted
	case rec.Truncated:
		return OutcomeTruncated
	case rec.Changed > 0:
		return OutcomeChanged
	default:
		return OutcomeNoop
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
