package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart/wishlist store activity.
type CartMetrics struct {
	mutations      *prometheus.CounterVec
	persistTotal   *prometheus.CounterVec
	persistLatency prometheus.Histogram
	loadFailures   *prometheus.CounterVec
	openStores     prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart and wishlist mutations by operation.",
	}, []string{"op"})
	persistTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_writes_total",
		Help: "Snapshot writes to the persistence slot by result.",
	}, []string{"result"})
	persistLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_persist_duration_seconds",
		Help:    "Duration of snapshot writes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	loadFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_load_failures_total",
		Help: "Slots that could not be read or decoded on open.",
	}, []string{"slot"})
	openStores := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_open_stores",
		Help: "Stores currently held by the registry.",
	})
	reg.MustRegister(mutations, persistTotal, persistLatency, loadFailures, openStores)
	return &CartMetrics{
		mutations:      mutations,
		persistTotal:   persistTotal,
		persistLatency: persistLatency,
		loadFailures:   loadFailures,
		openStores:     openStores,
	}
}

// IncMutation counts one mutation of the named kind.
func (m *CartMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObservePersist records one slot write.
func (m *CartMetrics) ObservePersist(duration time.Duration, err error) {
	if m == nil || m.persistTotal == nil {
		return
	}
	m.persistTotal.WithLabelValues(resultLabel(err)).Inc()
	m.persistLatency.Observe(duration.Seconds())
}

// IncLoadFailure counts a slot that fell back to an empty list.
func (m *CartMetrics) IncLoadFailure(slot string) {
	if m == nil || m.loadFailures == nil {
		return
	}
	m.loadFailures.WithLabelValues(normalizeLabel(slot)).Inc()
}

// SetOpenStores reports the registry size.
func (m *CartMetrics) SetOpenStores(n int) {
	if m == nil || m.openStores == nil {
		return
	}
	m.openStores.Set(float64(n))
}
