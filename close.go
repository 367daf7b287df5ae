package segcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/segcore/internal/deletelog"
	"github.com/hupe1980/segcore/schema"
)

// ErrSystemField is returned when dropping the row id or timestamp field.
var ErrSystemField = errors.New("segcore: system fields cannot be dropped")

// DropFieldData releases the raw data of a field. Unless the configuration
// allows it, a field is only dropped while an index can still answer it.
// Readers already holding the column finish with it.
func (s *SealedSegment) DropFieldData(ctx context.Context, id schema.FieldID) (err error) {
	defer func() { s.logger.LogDrop(ctx, "field", id, err) }()

	if _, err := s.field(id); err != nil {
		return err
	}
	if id.IsSystem() {
		return fmt.Errorf("%w: %d", ErrSystemField, id)
	}
	if !s.opts.cfg.AllowDropRawWithoutIndex && !s.hasUsableIndex(id) {
		return fmt.Errorf("%w: field %d", ErrDropWithoutIndex, id)
	}

	dropped, err := s.store.Drop(id)
	if !dropped {
		return err
	}
	s.release(s.fieldCharge, id)
	s.mu.Lock()
	s.droppedField[id] = struct{}{}
	s.mu.Unlock()
	s.metrics.RecordDrop("field")
	return err
}

func (s *SealedSegment) hasUsableIndex(id schema.FieldID) bool {
	if x, _ := s.indexes.Vector(id); x != nil {
		return true
	}
	_, ok := s.indexes.Scalar(id)
	return ok
}

// DropIndex removes the index of a field, interim or persisted. A load in
// progress is left alone.
func (s *SealedSegment) DropIndex(ctx context.Context, id schema.FieldID) error {
	if _, err := s.field(id); err != nil {
		return err
	}
	if !s.indexes.Drop(id) {
		return nil
	}
	s.release(s.indexCharge, id)
	s.metrics.RecordDrop("index")
	s.logger.LogDrop(ctx, "index", id, nil)
	return nil
}

// ClearData drops every field, index, tombstone and the row index, leaving
// an empty segment with the same schema.
func (s *SealedSegment) ClearData() error {
	err := s.store.Clear()
	s.indexes.Clear()

	s.sysMu.Lock()
	s.sys = systemColumns{}
	s.rows.Store(nil)
	s.sysMu.Unlock()
	s.deletes.Store(deletelog.New())
	s.rowCount.Store(0)

	s.mu.Lock()
	var bytes int64
	for _, m := range []map[schema.FieldID]int64{s.fieldCharge, s.indexCharge} {
		for id, n := range m {
			bytes += n
			delete(m, id)
		}
	}
	clear(s.droppedField)
	clear(s.vectorNulls)
	s.mu.Unlock()
	s.rc.ReleaseMemory(bytes)
	return err
}

// Close clears the segment and releases the executor it created. Loads
// after Close fail with ErrClosed.
func (s *SealedSegment) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.ClearData()
	if s.ownExec != nil {
		s.ownExec.Release()
	}
	return err
}
