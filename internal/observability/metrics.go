package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments for the live-reload subsystem. Everything
// registers against a private registry so embedding applications keep their
// default registry clean.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	SignalsPublished *prometheus.CounterVec
	WatchEvents      prometheus.Counter
	DebounceWindow   prometheus.Histogram

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapfire_connected_clients",
				Help: "Number of browser clients currently connected to the reload endpoint",
			},
		),
		SignalsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapfire_reload_signals_total",
				Help: "Reload signals broadcast to clients, by payload",
			},
			[]string{"type"},
		),
		WatchEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snapfire_watch_events_total",
				Help: "Raw filesystem events observed by the watcher",
			},
		),
		DebounceWindow: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapfire_debounce_window_seconds",
				Help:    "Observed length of debounce windows from first event to emission",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
		),
	}
	return m
}

// Register binds the instruments to a private registry and builds the
// promhttp handler. Must be called before Handler; duplicate registration
// surfaces as an error.
func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.ConnectedClients,
		m.SignalsPublished,
		m.WatchEvents,
		m.DebounceWindow,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return nil
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}
