package mmap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// AccessPattern is a paging hint for mapped memory.
type AccessPattern uint8

const (
	AccessNormal AccessPattern = iota
	AccessSequential
	AccessRandom
	// AccessWillNeed asks the kernel to page the range in ahead of reads.
	AccessWillNeed
	AccessDontNeed
)

var (
	ErrClosed      = errors.New("mmap: mapping closed")
	ErrOutOfBounds = errors.New("mmap: range out of bounds")
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	buf    []byte
	unmap  func() error
	owned  string
	closed atomic.Bool
}

// Open maps an existing file. Close leaves the file in place.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	m := &Mapping{}
	if st.Size() == 0 {
		return m, nil
	}
	if int64(int(st.Size())) != st.Size() {
		return nil, fmt.Errorf("mmap: %s is too large to map (%d bytes)", path, st.Size())
	}
	if m.buf, m.unmap, err = mapFile(f, int(st.Size())); err != nil {
		return nil, fmt.Errorf("mmap: map %s: %w", path, err)
	}
	return m, nil
}

// Create writes data to path, creating parent directories, and maps it.
// The Mapping owns the file and removes it on Close.
func Create(path string, data []byte) (*Mapping, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	m, err := Open(path)
	if err != nil {
		return nil, errors.Join(err, os.Remove(path))
	}
	m.owned = path
	return m, nil
}

// Bytes returns the mapped file, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.buf
}

// Size is the mapped length in bytes.
func (m *Mapping) Size() int { return len(m.buf) }

// Region returns the window [off, off+n) of the mapping.
func (m *Mapping) Region(off, n int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off > len(m.buf)-n {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, off, off+n, len(m.buf))
	}
	return &Region{m: m, off: off, n: n}, nil
}

// Advise applies a paging hint to the whole mapping.
func (m *Mapping) Advise(p AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return advise(m.buf, p)
}

// Close unmaps the file and removes it when owned.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	var errs []error
	if m.unmap != nil {
		errs = append(errs, m.unmap())
	}
	if m.owned != "" {
		if err := os.Remove(m.owned); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Region is a window into a Mapping. It does not own memory.
type Region struct {
	m   *Mapping
	off int
	n   int
}

// Bytes returns the window, or nil once the mapping is closed.
func (r *Region) Bytes() []byte {
	b := r.m.Bytes()
	if b == nil {
		return nil
	}
	return b[r.off : r.off+r.n : r.off+r.n]
}

func (r *Region) Size() int { return r.n }

// Advise applies a paging hint to the window only.
func (r *Region) Advise(p AccessPattern) error {
	b := r.Bytes()
	if b == nil {
		return ErrClosed
	}
	return advise(b, p)
}
