package segcore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics from a segment.
// metrics/prom provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordLoad is called after a field data, index or delta load.
	// what is one of "field", "index" or "delta"; bytes is the decoded size.
	RecordLoad(what string, bytes int64, duration time.Duration, err error)

	// RecordDrop is called after field data or an index is released.
	RecordDrop(what string)

	// RecordSearch is called after each vector search.
	// path is "index" or "brute_force".
	RecordSearch(path string, queries int, duration time.Duration, err error)

	// RecordRetrieve is called after each bulk retrieval.
	RecordRetrieve(rows int, duration time.Duration, err error)

	// RecordDelete is called after each batch of tombstones.
	RecordDelete(count int, duration time.Duration, err error)
}

// NoopMetricsCollector discards every metric.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordDrop(string)                              {}
func (NoopMetricsCollector) RecordSearch(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRetrieve(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadBytes        atomic.Int64
	DropCount        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchQueries    atomic.Int64
	IndexSearches    atomic.Int64
	SearchTotalNanos atomic.Int64
	RetrieveCount    atomic.Int64
	RetrieveErrors   atomic.Int64
	RetrieveRows     atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	DeletedKeys      atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ string, bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(bytes)
}

// RecordDrop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDrop(string) {
	b.DropCount.Add(1)
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(path string, queries int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchQueries.Add(int64(queries))
	if path == searchPathIndex {
		b.IndexSearches.Add(1)
	}
}

// RecordRetrieve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrieve(rows int, _ time.Duration, err error) {
	b.RetrieveCount.Add(1)
	if err != nil {
		b.RetrieveErrors.Add(1)
		return
	}
	b.RetrieveRows.Add(int64(rows))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count int, _ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
		return
	}
	b.DeletedKeys.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadBytes:      b.LoadBytes.Load(),
		DropCount:      b.DropCount.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		IndexSearches:  b.IndexSearches.Load(),
		SearchAvgNanos: b.avgSearchNanos(),
		RetrieveCount:  b.RetrieveCount.Load(),
		RetrieveErrors: b.RetrieveErrors.Load(),
		RetrieveRows:   b.RetrieveRows.Load(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		DeletedKeys:    b.DeletedKeys.Load(),
	}
}

func (b *BasicMetricsCollector) avgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount      int64
	LoadErrors     int64
	LoadBytes      int64
	DropCount      int64
	SearchCount    int64
	SearchErrors   int64
	SearchQueries  int64
	IndexSearches  int64
	SearchAvgNanos int64
	RetrieveCount  int64
	RetrieveErrors int64
	RetrieveRows   int64
	DeleteCount    int64
	DeleteErrors   int64
	DeletedKeys    int64
}
