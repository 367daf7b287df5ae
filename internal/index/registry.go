package index

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/index/scalar"
	"github.com/hupe1980/segcore/schema"
)

type entry struct {
	state  State
	vector VectorIndex
	scalar ScalarIndex
}

var empty = &entry{state: NoIndex}

// Registry tracks the index of every field of one segment. The map is guarded
// by a mutex; entries are published through atomic pointers so readers never
// block on a load.
type Registry struct {
	mu      sync.RWMutex
	entries map[schema.FieldID]*atomic.Pointer[entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[schema.FieldID]*atomic.Pointer[entry])}
}

func (r *Registry) slot(id schema.FieldID, create bool) *atomic.Pointer[entry] {
	r.mu.RLock()
	p := r.entries[id]
	r.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p = r.entries[id]; p == nil {
		p = new(atomic.Pointer[entry])
		p.Store(empty)
		r.entries[id] = p
	}
	return p
}

func (r *Registry) load(id schema.FieldID) *entry {
	if p := r.slot(id, false); p != nil {
		return p.Load()
	}
	return empty
}

// State returns the index state of a field.
func (r *Registry) State(id schema.FieldID) State {
	return r.load(id).state
}

// begin moves a field to Loading, keeping an interim vector index usable.
func (r *Registry) begin(id schema.FieldID) (*atomic.Pointer[entry], *entry, error) {
	p := r.slot(id, true)
	prev := p.Load()
	switch prev.state {
	case Ready:
		return nil, nil, fmt.Errorf("%w: field %d", ErrAlreadyLoaded, id)
	case Loading:
		return nil, nil, fmt.Errorf("%w: field %d", ErrLoadInProgress, id)
	}
	if !p.CompareAndSwap(prev, &entry{state: Loading, vector: prev.vector}) {
		return nil, nil, fmt.Errorf("%w: field %d", ErrLoadInProgress, id)
	}
	return p, prev, nil
}

// LoadVector decodes a persisted vector index artifact for field and installs
// it. The artifact must match the field's data type and dimension and the
// requested metric. On error the field keeps its previous state.
func (r *Registry) LoadVector(field schema.Field, metric distance.Metric, frame []byte) (VectorIndex, error) {
	if !Indexable(field.DataType) {
		return nil, &TypeMismatchError{Field: field.ID, What: "data type", Want: "dense float vector", Got: field.DataType.String()}
	}
	p, prev, err := r.begin(field.ID)
	if err != nil {
		return nil, err
	}

	x, err := func() (VectorIndex, error) {
		a, err := Decode(frame)
		if err != nil {
			return nil, err
		}
		m, err := checkVector(field, metric, a.Meta)
		if err != nil {
			return nil, err
		}
		return decodeVector(a.Meta, m, a.Body)
	}()
	if err != nil {
		p.Store(prev)
		return nil, err
	}

	p.Store(&entry{state: Ready, vector: x})
	return x, nil
}

// LoadScalar decodes a persisted scalar index artifact for field and installs it.
func (r *Registry) LoadScalar(field schema.Field, frame []byte) (ScalarIndex, error) {
	if !scalar.Supports(field.DataType) {
		return nil, &TypeMismatchError{Field: field.ID, What: "data type", Want: "scalar", Got: field.DataType.String()}
	}
	p, prev, err := r.begin(field.ID)
	if err != nil {
		return nil, err
	}

	x, err := func() (ScalarIndex, error) {
		a, err := Decode(frame)
		if err != nil {
			return nil, err
		}
		if err := checkScalar(field, a.Meta); err != nil {
			return nil, err
		}
		s, err := scalar.Decode(a.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
		}
		if s.DataType() != field.DataType {
			return nil, &TypeMismatchError{Field: field.ID, What: "data type", Want: field.DataType.String(), Got: s.DataType().String()}
		}
		return s, nil
	}()
	if err != nil {
		p.Store(prev)
		return nil, err
	}

	p.Store(&entry{state: Ready, scalar: x})
	return x, nil
}

// InstallInterim publishes an interim vector index. It only succeeds while the
// field has no index; a persisted index always wins.
func (r *Registry) InstallInterim(id schema.FieldID, x VectorIndex) error {
	p := r.slot(id, true)
	if !p.CompareAndSwap(empty, &entry{state: InterimReady, vector: x}) {
		return fmt.Errorf("%w: field %d is %s", ErrAlreadyLoaded, id, p.Load().state)
	}
	return nil
}

// Vector returns the vector index that currently answers searches on a field
// together with the field state. A field that is Loading still answers with
// its interim index, if any.
func (r *Registry) Vector(id schema.FieldID) (VectorIndex, State) {
	e := r.load(id)
	return e.vector, e.state
}

// Scalar returns the scalar index of a field.
func (r *Registry) Scalar(id schema.FieldID) (ScalarIndex, bool) {
	e := r.load(id)
	if e.state != Ready || e.scalar == nil {
		return nil, false
	}
	return e.scalar, true
}

// HasIndex reports whether a persisted index is Ready.
func (r *Registry) HasIndex(id schema.FieldID) bool {
	return r.load(id).state == Ready
}

// HasRawData reports whether the current index of a field can reconstruct rows.
func (r *Registry) HasRawData(id schema.FieldID) bool {
	e := r.load(id)
	switch {
	case e.vector != nil:
		return e.vector.HasRawData()
	case e.scalar != nil:
		return e.scalar.HasRawData()
	default:
		return false
	}
}

// Drop removes the index of a field. Readers holding the index finish with it.
// It reports whether an index was installed. A load in progress is not dropped.
func (r *Registry) Drop(id schema.FieldID) bool {
	p := r.slot(id, false)
	if p == nil {
		return false
	}
	for {
		e := p.Load()
		if e.state == NoIndex || e.state == Loading {
			return false
		}
		if p.CompareAndSwap(e, empty) {
			return true
		}
	}
}

// Fields returns the fields holding any index, ascending.
func (r *Registry) Fields() []schema.FieldID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schema.FieldID
	for id, p := range r.entries {
		if e := p.Load(); e.vector != nil || e.scalar != nil {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MemSize sums the memory of installed indexes.
func (r *Registry) MemSize() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.entries {
		e := p.Load()
		if e.vector != nil {
			n += e.vector.MemSize()
		}
		if e.scalar != nil {
			n += e.scalar.MemSize()
		}
	}
	return n
}

// Clear drops every installed index.
func (r *Registry) Clear() {
	for _, id := range r.Fields() {
		r.Drop(id)
	}
}
