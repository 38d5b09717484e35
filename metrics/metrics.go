// Package metrics exposes Prometheus metrics for configuration detail loads
// and resyncs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records assembler activity.
type Collector interface {
	// RecordLoad records a finished load. outcome is "ready", "error" or "stale".
	RecordLoad(outcome string, duration time.Duration)

	// RecordResync records a finished resync. outcome is "success", "error",
	// "rejected" or "stale".
	RecordResync(outcome string, duration time.Duration)

	// RecordSectionDegraded records a section that could not be assembled.
	RecordSectionDegraded(section string)
}

// NoOpCollector discards everything.
type NoOpCollector struct{}

func (NoOpCollector) RecordLoad(string, time.Duration)   {}
func (NoOpCollector) RecordResync(string, time.Duration) {}
func (NoOpCollector) RecordSectionDegraded(string)       {}

// PrometheusCollector implements Collector with Prometheus metrics.
type PrometheusCollector struct {
	loads           *prometheus.CounterVec
	loadLatency     *prometheus.HistogramVec
	resyncs         *prometheus.CounterVec
	resyncLatency   *prometheus.HistogramVec
	degradedSection *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector and registers it with reg.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_detail_loads_total",
				Help:      "Configuration detail loads by outcome",
			},
			[]string{"outcome"},
		),
		loadLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "config_detail_load_seconds",
				Help:      "Configuration detail load latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		resyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_detail_resyncs_total",
				Help:      "Usage resyncs by outcome",
			},
			[]string{"outcome"},
		),
		resyncLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "config_detail_resync_seconds",
				Help:      "Usage resync latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		degradedSection: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_detail_degraded_sections_total",
				Help:      "Sections rendered unavailable, by section",
			},
			[]string{"section"},
		),
	}

	for _, m := range []prometheus.Collector{c.loads, c.loadLatency, c.resyncs, c.resyncLatency, c.degradedSection} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) RecordLoad(outcome string, duration time.Duration) {
	c.loads.WithLabelValues(outcome).Inc()
	c.loadLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordResync(outcome string, duration time.Duration) {
	c.resyncs.WithLabelValues(outcome).Inc()
	c.resyncLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordSectionDegraded(section string) {
	c.degradedSection.WithLabelValues(section).Inc()
}

// MetricsServer serves /metrics from its own registry.
type MetricsServer struct {
	*http.Server
	Registry  *prometheus.Registry
	Collector *PrometheusCollector
}

// New creates a metrics server listening on addr with a collector registered
// under namespace. Go runtime and process collectors are included.
func New(namespace, addr string) (*MetricsServer, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := NewPrometheusCollector(namespace, reg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &MetricsServer{
		Server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Registry:  reg,
		Collector: collector,
	}, nil
}
