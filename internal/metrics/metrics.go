package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payments"

// Metrics owns its own registry so that several contexts can live in one process (tests) without
// colliding on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	storageCalls      *prometheus.CounterVec
	drainerEntries    *prometheus.CounterVec
	drainerLag        *prometheus.GaugeVec
	cacheAvailable    prometheus.Gauge
	connectorCalls    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of payment pipeline runs by flow and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow", "result"}),
		storageCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_calls_total",
			Help:      "Storage calls by table, operation, scheme and result.",
		}, []string{"table", "op", "scheme", "result"}),
		drainerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drainer_entries_total",
			Help:      "Change stream entries applied by the drainer.",
		}, []string{"table", "op", "result"}),
		drainerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drainer_lag_entries",
			Help:      "Entries left in a shard stream after the last drain.",
		}, []string{"stream"}),
		cacheAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_available",
			Help:      "1 when the cache is reachable, 0 otherwise.",
		}),
		connectorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_calls_total",
			Help:      "Connector dispatches by connector, action and result.",
		}, []string{"connector", "action", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operationDuration,
		m.storageCalls,
		m.drainerEntries,
		m.drainerLag,
		m.cacheAvailable,
		m.connectorCalls,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveOperation(flow string, result string, started time.Time) {
	m.operationDuration.WithLabelValues(flow, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) StorageCall(table, op, scheme, result string) {
	m.storageCalls.WithLabelValues(table, op, scheme, result).Inc()
}

func (m *Metrics) DrainerEntry(table, op, result string) {
	m.drainerEntries.WithLabelValues(table, op, result).Inc()
}

func (m *Metrics) DrainerLag(stream string, lag int64) {
	m.drainerLag.WithLabelValues(stream).Set(float64(lag))
}

func (m *Metrics) CacheAvailable(available bool) {
	if available {
		m.cacheAvailable.Set(1)
		return
	}
	m.cacheAvailable.Set(0)
}

func (m *Metrics) ConnectorCall(connector, action, result string) {
	m.connectorCalls.WithLabelValues(connector, action, result).Inc()
}
