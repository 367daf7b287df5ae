package segcore

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/executor"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/searcher"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

const (
	searchPathIndex      = "index"
	searchPathBruteForce = "brute_force"
)

// CheckSearch validates a request against the schema and the index that
// would currently answer it.
func (s *SealedSegment) CheckSearch(req model.SearchRequest) error {
	x, _ := s.indexes.Vector(req.FieldID)
	_, err := s.checkSearch(req, x)
	return err
}

func (s *SealedSegment) checkSearch(req model.SearchRequest, x index.VectorIndex) (schema.Field, error) {
	field, err := s.field(req.FieldID)
	if err != nil {
		return field, err
	}
	if !field.DataType.IsVector() {
		return field, &TypeMismatchError{Field: field.ID, What: "data type", Want: "vector", Got: field.DataType.String()}
	}
	if req.TopK <= 0 {
		return field, fmt.Errorf("%w: %d", ErrInvalidK, req.TopK)
	}
	if _, err := searcher.NewScorer(field.DataType, field.Dim, req.Metric); err != nil {
		return field, &TypeMismatchError{Field: field.ID, What: "metric", Want: "metric of " + field.DataType.String(), Got: req.Metric.String()}
	}
	if x != nil {
		if x.Metric() != req.Metric {
			return field, &TypeMismatchError{Field: field.ID, What: "metric", Want: x.Metric().String(), Got: req.Metric.String()}
		}
		return field, nil
	}
	if s.store.State(field.ID) != column.Loaded {
		return field, fmt.Errorf("%w: field %d has neither index nor raw data", ErrIndexNotReady, field.ID)
	}
	return field, nil
}

// VectorSearch ranks the rows visible at asOf and admitted by filter against
// every query. Queries use the row encoding of the field type. An installed
// index answers when present, including an interim one; otherwise rows are
// scored by brute force. Both paths rank by distance, then by offset.
func (s *SealedSegment) VectorSearch(ctx context.Context, req model.SearchRequest, queries [][]byte, asOf model.Timestamp, filter *roaring.Bitmap) (res *model.SearchResult, err error) {
	start := time.Now()
	path := searchPathBruteForce
	defer func() {
		s.metrics.RecordSearch(path, len(queries), time.Since(start), err)
		s.logger.LogSearch(ctx, req.FieldID, req.TopK, len(queries), path, err)
	}()

	x, _ := s.indexes.Vector(req.FieldID)
	field, err := s.checkSearch(req, x)
	if err != nil {
		return nil, err
	}

	admit, err := s.VisibleRows(asOf)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		admit.And(filter)
	}

	p := searcher.Params{K: req.TopK, NProbe: req.NProbe, Radius: req.Radius, Admit: admit}
	res = &model.SearchResult{SegmentID: s.id, Queries: make([][]model.Candidate, len(queries))}
	if x != nil {
		path = searchPathIndex
		if nulls := s.nullVectors(field.ID); nulls != nil {
			p.Admit.AndNot(nulls)
		}
		err = s.searchIndex(ctx, x, field, p, queries, res.Queries)
	} else {
		err = s.searchRaw(ctx, field, req, p, queries, res.Queries)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SealedSegment) searchIndex(ctx context.Context, x index.VectorIndex, field schema.Field, p searcher.Params, queries [][]byte, out [][]model.Candidate) error {
	size := field.RowSize()
	tasks := make([]func() error, len(queries))
	for i, q := range queries {
		tasks[i] = func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(q) != size {
				return fmt.Errorf("query %d has %d bytes, field %d needs %d", i, len(q), field.ID, size)
			}
			vec := make([]float32, field.Dim)
			searcher.DecodeFloat(field.DataType, vec, q)
			hits, err := x.Search(vec, p)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = hits
			return nil
		}
	}
	return executor.RunAll(s.exec, tasks...)
}

func (s *SealedSegment) searchRaw(ctx context.Context, field schema.Field, req model.SearchRequest, p searcher.Params, queries [][]byte, out [][]model.Candidate) error {
	col, err := s.store.Pin(field.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexNotReady, err)
	}
	defer col.Unpin()

	scorer, err := searcher.NewScorer(field.DataType, field.Dim, req.Metric)
	if err != nil {
		return err
	}

	tasks := make([]func() error, len(queries))
	for i, q := range queries {
		tasks[i] = func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := scorer.Prepare(q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			c := searcher.NewCollector(&p, req.Metric)
			var base int64
			for ci := 0; ci < col.ChunkCount(); ci++ {
				chunk := col.Chunk(ci)
				for j := 0; j < chunk.Rows(); j++ {
					off := base + int64(j)
					if !p.Admits(off) || !chunk.IsValid(j) {
						continue
					}
					c.Offer(off, score(chunk.Row(j)))
				}
				base += int64(chunk.Rows())
			}
			out[i] = c.Results()
			return nil
		}
	}
	return executor.RunAll(s.exec, tasks...)
}
