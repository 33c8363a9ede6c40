package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MirrorMetrics records catalog mirror fan-out.
type MirrorMetrics struct {
	deliveries    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
	reload        *prometheus.HistogramVec
}

// NewMirrorMetrics registers the mirror metrics on the provided registerer.
func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	if reg == nil {
		return &MirrorMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_deliveries_total",
		Help: "Snapshots delivered to subscribers.",
	}, []string{"collection"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_subscription_failures_total",
		Help: "Failed snapshot reloads or change feed subscriptions.",
	}, []string{"collection"})
	subscriptions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mirror_active_subscriptions",
		Help: "Live subscribers per collection.",
	}, []string{"collection"})
	reload := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirror_reload_duration_seconds",
		Help:    "Time spent loading a collection snapshot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})
	reg.MustRegister(deliveries, failures, subscriptions, reload)
	return &MirrorMetrics{
		deliveries:    deliveries,
		failures:      failures,
		subscriptions: subscriptions,
		reload:        reload,
	}
}

func (m *MirrorMetrics) AddDeliveries(collection string, n int) {
	if m == nil || m.deliveries == nil || n <= 0 {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(collection)).Add(float64(n))
}

func (m *MirrorMetrics) IncFailure(collection string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(collection)).Inc()
}

func (m *MirrorMetrics) SetSubscribers(collection string, n int) {
	if m == nil || m.subscriptions == nil {
		return
	}
	m.subscriptions.WithLabelValues(normalizeLabel(collection)).Set(float64(n))
}

func (m *MirrorMetrics) ObserveReload(collection string, d time.Duration) {
	if m == nil || m.reload == nil {
		return
	}
	m.reload.WithLabelValues(normalizeLabel(collection)).Observe(d.Seconds())
}
