// Package loader fetches field binlogs, index files and delta logs from a
// blob store for a sealed segment.
//
// Files are fetched in batches of at most the parallel degree, the field
// memory budget divided by the file slice size. Every task of a batch runs to
// completion before the first error of the batch is returned, so no fetch is
// left running behind a failed load. Each fetch also holds a worker slot of
// the resource controller, which bounds loads across all segments.
package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/segcore/blobstore"
	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/executor"
	"github.com/hupe1980/segcore/internal/resource"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// Config bounds remote fetches.
type Config struct {
	// FieldMaxMemoryLimit is the memory budget of one field load in bytes.
	FieldMaxMemoryLimit int64
	// FileSliceSize is the expected size of one remote file in bytes.
	FileSliceSize int64
}

// DefaultConfig returns a 128MiB field budget over 16MiB slices.
func DefaultConfig() Config {
	return Config{FieldMaxMemoryLimit: 128 << 20, FileSliceSize: 16 << 20}
}

// ParallelDegree returns how many files are fetched at once.
func (c Config) ParallelDegree() int {
	if c.FileSliceSize <= 0 || c.FieldMaxMemoryLimit <= 0 {
		return 1
	}
	return int(max(c.FieldMaxMemoryLimit/c.FileSliceSize, 1))
}

// Loader fetches and decodes remote files.
type Loader struct {
	store blobstore.Store
	exec  executor.Executor
	rc    *resource.Controller
	cfg   Config
}

// New creates a Loader. exec and rc may be nil.
func New(store blobstore.Store, exec executor.Executor, rc *resource.Controller, cfg Config) *Loader {
	if exec == nil {
		exec = executor.Inline{}
	}
	return &Loader{store: store, exec: exec, rc: rc, cfg: cfg}
}

// Fetch reads every path and returns their contents in path order.
func (l *Loader) Fetch(ctx context.Context, paths []string) ([][]byte, error) {
	return fetchEach(ctx, l, paths, func(b []byte) ([]byte, error) { return b, nil })
}

// fetchEach reads and decodes paths batch by batch on the executor.
func fetchEach[T any](ctx context.Context, l *Loader, paths []string, decode func([]byte) (T, error)) ([]T, error) {
	out := make([]T, len(paths))
	degree := l.cfg.ParallelDegree()

	for start := 0; start < len(paths); start += degree {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := paths[start:min(start+degree, len(paths))]
		tasks := make([]func() error, len(batch))
		for i, p := range batch {
			slot := start + i
			tasks[i] = func() error {
				if err := l.rc.AcquireWorker(ctx); err != nil {
					return err
				}
				defer l.rc.ReleaseWorker()

				data, err := l.store.Read(ctx, p)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", p, err)
				}
				if err := l.rc.AcquireIO(ctx, len(data)); err != nil {
					return err
				}
				v, err := decode(data)
				if err != nil {
					return fmt.Errorf("decode %s: %w", p, err)
				}
				out[slot] = v
				return nil
			}
		}
		if err := executor.RunAll(l.exec, tasks...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FieldData fetches the binlogs of field, merges them in order and pads the
// result with default values up to rows.
func (l *Loader) FieldData(ctx context.Context, field schema.Field, paths []string, rows int64) (*column.FieldData, error) {
	var parts []*column.FieldData
	if len(paths) > 0 {
		var err error
		parts, err = fetchEach(ctx, l, paths, binlog.DecodeFieldData)
		if err != nil {
			return nil, err
		}
	}

	for i, p := range parts {
		if p.Type != field.DataType || p.Dim != field.Dim {
			return nil, fmt.Errorf("%w: %s holds %s dim %d, field %d is %s dim %d",
				column.ErrInvalidData, paths[i], p.Type, p.Dim, field.ID, field.DataType, field.Dim)
		}
	}

	var d *column.FieldData
	if len(parts) == 0 {
		d = column.Defaults(field, 0)
	} else {
		var err error
		if d, err = column.Merge(parts...); err != nil {
			return nil, err
		}
	}
	if int64(d.Rows) > rows {
		return nil, fmt.Errorf("%w: field %d has %d rows, segment %d", column.ErrRowCountMismatch, field.ID, d.Rows, rows)
	}
	return column.FillMissing(field, d, int(rows))
}

// Index fetches the slices of an index artifact and joins them in order.
func (l *Loader) Index(ctx context.Context, paths []string) ([]byte, error) {
	parts, err := l.Fetch(ctx, paths)
	if err != nil {
		return nil, err
	}
	return bytes.Join(parts, nil), nil
}

// Deltas fetches delta logs and concatenates their records in path order.
func (l *Loader) Deltas(ctx context.Context, paths []string) ([]model.PK, []model.Timestamp, error) {
	type delta struct {
		pks []model.PK
		tss []model.Timestamp
	}
	parts, err := fetchEach(ctx, l, paths, func(b []byte) (delta, error) {
		pks, tss, err := binlog.DecodeDelta(b)
		return delta{pks, tss}, err
	})
	if err != nil {
		return nil, nil, err
	}
	var pks []model.PK
	var tss []model.Timestamp
	for _, p := range parts {
		pks = append(pks, p.pks...)
		tss = append(tss, p.tss...)
	}
	return pks, tss, nil
}

// List returns the files under prefix.
func (l *Loader) List(ctx context.Context, prefix string) ([]string, error) {
	return l.store.List(ctx, prefix)
}
