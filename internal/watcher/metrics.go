package watcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by watch sessions. A nil
// *Metrics records nothing.
type Metrics struct {
	Sessions     prometheus.Gauge
	Tracked      prometheus.Gauge
	Scans        prometheus.Counter
	ScanDuration prometheus.Histogram
	Delivered    prometheus.Counter
	Dropped      prometheus.Counter
}

// NewMetrics creates the watcher collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fswatch_sessions_active",
			Help: "Number of open watch sessions",
		}),
		Tracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fswatch_subscriptions_active",
			Help: "Number of paths with a live change subscription",
		}),
		Scans: factory.NewCounter(prometheus.CounterOpts{
			Name: "fswatch_scans_total",
			Help: "Total number of tree scans",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fswatch_scan_duration_seconds",
			Help:    "Duration of tree scans",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		Delivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "fswatch_events_delivered_total",
			Help: "Changed paths handed to consumers",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fswatch_events_dropped_total",
			Help: "Changed paths dropped because the consumer buffer was full",
		}),
	}
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.Sessions.Dec()
}

func (m *Metrics) track(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Tracked.Add(float64(n))
}

func (m *Metrics) untrack(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Tracked.Sub(float64(n))
}

func (m *Metrics) observeScan(d time.Duration) {
	if m == nil {
		return
	}
	m.Scans.Inc()
	m.ScanDuration.Observe(d.Seconds())
}

func (m *Metrics) delivered() {
	if m == nil {
		return
	}
	m.Delivered.Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}
