// Package metrics holds the Prometheus collectors of the agenda daemon.
//
// Collectors live on a private registry so that several instances (tests,
// embedded servers) never collide on the global default registry. All
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agenda"

type Metrics struct {
	registry *prometheus.Registry

	snapshotEvents   prometheus.Gauge
	snapshotLoadedTS prometheus.Gauge
	refreshTotal     *prometheus.CounterVec
	sourceErrors     *prometheus.CounterVec
	evaluations      *prometheus.CounterVec
	evalDuration     prometheus.Summary
	requests         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.snapshotEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_events",
		Help:      "Number of events in the current snapshot",
	})
	m.snapshotLoadedTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_loaded_timestamp_seconds",
		Help:      "Unix timestamp of the last snapshot replacement",
	})
	m.refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Snapshot refresh attempts by result",
	}, []string{"result"})
	m.sourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_errors_total",
		Help:      "Feed source failures by source id",
	}, []string{"source"})
	m.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Filter evaluations by memo cache outcome",
	}, []string{"cache"})
	m.evalDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent producing a filtered view",
	})
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by handler and status code",
	}, []string{"handler", "code"})

	m.registry.MustRegister(
		m.snapshotEvents, m.snapshotLoadedTS,
		m.refreshTotal, m.sourceErrors,
		m.evaluations, m.evalDuration, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the private registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SnapshotReplaced(events int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.snapshotEvents.Set(float64(events))
	m.snapshotLoadedTS.Set(float64(loadedAt.Unix()))
}

// RefreshDone records one refresh attempt: "ok" when every source loaded,
// "partial" when a snapshot was published despite source errors, "error"
// when the previous snapshot was kept.
func (m *Metrics) RefreshDone(replaced bool, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case !replaced:
		result = "error"
	case err != nil:
		result = "partial"
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SourceFailed(id string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(id).Inc()
}

func (m *Metrics) Evaluation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	m.evaluations.WithLabelValues(cache).Inc()
	m.evalDuration.Observe(d.Seconds())
}

func (m *Metrics) Request(handler string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(handler, strconv.Itoa(code)).Inc()
}
