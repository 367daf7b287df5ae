package segcore

import (
	"github.com/hupe1980/segcore/blobstore"
	"github.com/hupe1980/segcore/config"
	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/executor"
	"github.com/hupe1980/segcore/internal/resource"
	"github.com/hupe1980/segcore/schema"
)

// Executor runs load and search tasks. A *executor.Pool backed by ants is
// created from the load worker setting when none is supplied.
type Executor = executor.Executor

// ResourceController admits memory and throttles remote reads.
type ResourceController = resource.Controller

// NewResourceController creates a controller from limits.
func NewResourceController(cfg config.Resource, workers int) *ResourceController {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.MemoryLimitBytes,
		MaxLoadWorkers:     int64(workers),
		IOLimitBytesPerSec: cfg.IOLimitBytesPerSec,
	})
}

type options struct {
	cfg                  config.Config
	logger               *Logger
	metricsCollector     MetricsCollector
	exec                 Executor
	store                blobstore.Store
	rc                   *ResourceController
	sortedByPK           bool
	skipIndexForRetrieve bool
	indexMeta            map[schema.FieldID]distance.Metric
}

// Option configures a SealedSegment.
type Option func(*options)

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger. If nil is passed, NoopLogger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithExecutor injects the executor used for parallel fetches and searches.
// The segment does not release an injected executor.
func WithExecutor(ex Executor) Option {
	return func(o *options) {
		o.exec = ex
	}
}

// WithStore sets the remote store that load paths are read from.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithResourceController shares a controller between segments.
func WithResourceController(rc *ResourceController) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithSortedByPK declares that rows arrive sorted by primary key, which
// switches key lookups to binary search.
func WithSortedByPK(sorted bool) Option {
	return func(o *options) {
		o.sortedByPK = sorted
	}
}

// WithSkipIndexForRetrieve makes retrieval ignore indexes and read raw data
// only. Intended for tests.
func WithSkipIndexForRetrieve(skip bool) Option {
	return func(o *options) {
		o.skipIndexForRetrieve = skip
	}
}

// WithIndexMeta declares the metric a vector field is indexed with. Fields
// with index meta get an interim index on load when enabled, and index loads
// without a metric_type parameter fall back to it.
func WithIndexMeta(field schema.FieldID, m distance.Metric) Option {
	return func(o *options) {
		if o.indexMeta == nil {
			o.indexMeta = make(map[schema.FieldID]distance.Metric)
		}
		o.indexMeta[field] = m
	}
}
