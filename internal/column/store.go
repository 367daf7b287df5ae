package column

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hupe1980/segcore/internal/mmap"
	"github.com/hupe1980/segcore/schema"
)

// State is the load state of one field.
type State int32

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "Unloaded"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// MmapPolicy decides per field whether chunks are file-mapped.
type MmapPolicy struct {
	Enabled bool
	// Dir is the root of mapped chunk files: <Dir>/<segment>/<field>/<uuid>.
	Dir string
	// MinBytes is the smallest column size that is mapped.
	MinBytes int64
}

// Eligible reports whether a column of field with size bytes is mapped.
// Only vector and variable-length fields are mapped.
func (p MmapPolicy) Eligible(field schema.Field, size int64) bool {
	if !p.Enabled || p.Dir == "" || size < p.MinBytes || size == 0 {
		return false
	}
	return field.DataType.IsVector() || field.DataType.IsVariableLength()
}

// Options configures a Store.
type Options struct {
	SegmentID int64
	// ChunkRows is the target number of rows per chunk.
	ChunkRows int
	Mmap      MmapPolicy
}

type slot struct {
	state State
	col   *ChunkedColumn
}

var unloaded = &slot{state: Unloaded}

// Store holds the chunked columns of one segment.
type Store struct {
	opts Options

	mu    sync.RWMutex
	slots map[schema.FieldID]*atomic.Pointer[slot]

	heapBytes   atomic.Int64
	mappedBytes atomic.Int64
}

// NewStore creates an empty Store.
func NewStore(opts Options) *Store {
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = 8192
	}
	return &Store{
		opts:  opts,
		slots: make(map[schema.FieldID]*atomic.Pointer[slot]),
	}
}

func (s *Store) slot(id schema.FieldID, create bool) *atomic.Pointer[slot] {
	s.mu.RLock()
	p := s.slots[id]
	s.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p = s.slots[id]; p == nil {
		p = new(atomic.Pointer[slot])
		p.Store(unloaded)
		s.slots[id] = p
	}
	return p
}

// State returns the load state of a field.
func (s *Store) State(id schema.FieldID) State {
	p := s.slot(id, false)
	if p == nil {
		return Unloaded
	}
	return p.Load().state
}

// Load splits data into chunks and publishes the column. The column is built
// outside any lock; on failure the field keeps its prior state.
func (s *Store) Load(field schema.Field, data *FieldData) (*ChunkedColumn, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.Type != field.DataType {
		return nil, fmt.Errorf("%w: field %d is %s, data is %s", ErrInvalidData, field.ID, field.DataType, data.Type)
	}

	p := s.slot(field.ID, true)
	prev := p.Load()
	switch prev.state {
	case Loaded:
		return nil, fmt.Errorf("%w: field %d", ErrAlreadyLoaded, field.ID)
	case Loading:
		return nil, fmt.Errorf("%w: field %d", ErrLoadInProgress, field.ID)
	}
	if !p.CompareAndSwap(prev, &slot{state: Loading}) {
		return nil, fmt.Errorf("%w: field %d", ErrLoadInProgress, field.ID)
	}

	col, err := s.build(field, data)
	if err != nil {
		p.Store(prev)
		return nil, err
	}

	if col.Mapped() {
		s.mappedBytes.Add(col.Size())
	} else {
		s.heapBytes.Add(col.Size())
	}
	p.Store(&slot{state: Loaded, col: col})
	return col, nil
}

func (s *Store) build(field schema.Field, data *FieldData) (*ChunkedColumn, error) {
	rows := data.Rows
	step := s.opts.ChunkRows
	nullable := field.Nullable
	variable := field.DataType.IsVariableLength()
	stride := field.RowSize()

	var bufs [][]byte
	var total int64
	for start := 0; start < rows; start += step {
		b := encodeChunk(data, start, min(start+step, rows), nullable)
		bufs = append(bufs, b)
		total += int64(len(b))
	}

	rowsOf := func(i int) int { return min(step, rows-i*step) }

	if !s.opts.Mmap.Eligible(field, total) {
		chunks := make([]*Chunk, len(bufs))
		for i, b := range bufs {
			chunks[i] = newChunk(heapMemory(b), rowsOf(i), stride, nullable, variable)
		}
		return newChunkedColumn(field, chunks, nil), nil
	}

	file := make([]byte, 0, total)
	for _, b := range bufs {
		file = append(file, b...)
	}
	path := filepath.Join(s.opts.Mmap.Dir,
		strconv.FormatInt(s.opts.SegmentID, 10),
		strconv.FormatInt(int64(field.ID), 10),
		uuid.NewString())
	m, err := mmap.Create(path, file)
	if err != nil {
		return nil, fmt.Errorf("map field %d: %w", field.ID, err)
	}

	chunks := make([]*Chunk, len(bufs))
	pos := 0
	for i, b := range bufs {
		r, err := m.Region(pos, len(b))
		if err != nil {
			return nil, errors.Join(err, m.Close())
		}
		chunks[i] = newChunk(regionMemory{r: r}, rowsOf(i), stride, nullable, variable)
		pos += len(b)
	}
	return newChunkedColumn(field, chunks, m), nil
}

// Pin returns the loaded column of a field with a reference held.
// Callers must Unpin it when done.
func (s *Store) Pin(id schema.FieldID) (*ChunkedColumn, error) {
	p := s.slot(id, false)
	if p == nil {
		return nil, fmt.Errorf("%w: field %d", ErrNotLoaded, id)
	}
	for {
		sl := p.Load()
		if sl.state != Loaded {
			return nil, fmt.Errorf("%w: field %d", ErrNotLoaded, id)
		}
		if sl.col.pin() {
			return sl.col, nil
		}
		// A concurrent drop released the column; the slot is being replaced.
		if p.Load() == sl {
			return nil, fmt.Errorf("%w: field %d", ErrNotLoaded, id)
		}
	}
}

// Drop unpublishes the column of a field. Memory is released once every pin
// taken before the drop is gone. It reports whether the field was loaded.
func (s *Store) Drop(id schema.FieldID) (bool, error) {
	p := s.slot(id, false)
	if p == nil {
		return false, nil
	}
	for {
		sl := p.Load()
		if sl.state != Loaded {
			return false, nil
		}
		if !p.CompareAndSwap(sl, unloaded) {
			continue
		}
		if sl.col.Mapped() {
			s.mappedBytes.Add(-sl.col.Size())
		} else {
			s.heapBytes.Add(-sl.col.Size())
		}
		return true, sl.col.Unpin()
	}
}

// Fields returns the loaded field ids in ascending order.
func (s *Store) Fields() []schema.FieldID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.FieldID
	for id, p := range s.slots {
		if p.Load().state == Loaded {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear drops every loaded column.
func (s *Store) Clear() error {
	var errs []error
	for _, id := range s.Fields() {
		if _, err := s.Drop(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HeapBytes returns the bytes of heap-resident columns.
func (s *Store) HeapBytes() int64 { return s.heapBytes.Load() }

// MappedBytes returns the bytes of file-mapped columns.
func (s *Store) MappedBytes() int64 { return s.mappedBytes.Load() }
