// Package prom exports segment metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "segcore"

// Collector records segment operations as Prometheus metrics. It satisfies
// segcore.MetricsCollector.
type Collector struct {
	ops         *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	loadBytes   *prometheus.CounterVec
	drops       *prometheus.CounterVec
	queries     *prometheus.CounterVec
	rows        prometheus.Counter
	deletedKeys prometheus.Counter
}

// New registers the collector metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Segment operations by kind and status",
		}, []string{"op", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of segment operations",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		loadBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_bytes_total",
			Help:      "Bytes loaded into segments",
		}, []string{"what"}),
		drops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Field data and index drops",
		}, []string{"what"}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Query vectors searched by path",
		}, []string{"path"}),
		rows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieved_rows_total",
			Help:      "Rows returned by bulk retrieval",
		}),
		deletedKeys: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_keys_total",
			Help:      "Primary keys recorded as deleted",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.ops.WithLabelValues(op, status(err)).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordLoad records a field, index or delta load.
func (c *Collector) RecordLoad(what string, bytes int64, d time.Duration, err error) {
	c.observe("load_"+what, d, err)
	if err == nil && bytes > 0 {
		c.loadBytes.WithLabelValues(what).Add(float64(bytes))
	}
}

// RecordDrop records a drop of field data or an index.
func (c *Collector) RecordDrop(what string) {
	c.drops.WithLabelValues(what).Inc()
}

// RecordSearch records one search call.
func (c *Collector) RecordSearch(path string, queries int, d time.Duration, err error) {
	c.observe("search", d, err)
	if err == nil {
		c.queries.WithLabelValues(path).Add(float64(queries))
	}
}

// RecordRetrieve records one bulk retrieval.
func (c *Collector) RecordRetrieve(rows int, d time.Duration, err error) {
	c.observe("retrieve", d, err)
	if err == nil {
		c.rows.Add(float64(rows))
	}
}

// RecordDelete records one delete call.
func (c *Collector) RecordDelete(count int, d time.Duration, err error) {
	c.observe("delete", d, err)
	if err == nil {
		c.deletedKeys.Add(float64(count))
	}
}
