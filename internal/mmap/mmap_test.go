package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOwnsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "7", "101", "chunks")
	payload := []byte("0123456789abcdef")

	m, err := Create(path, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), m.Size())
	assert.Equal(t, payload, m.Bytes())

	r, err := m.Region(4, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), r.Bytes())
	assert.Equal(t, 6, r.Size())
	require.NoError(t, r.Advise(AccessWillNeed))
	require.NoError(t, m.Advise(AccessSequential))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.Nil(t, r.Bytes())
	assert.ErrorIs(t, r.Advise(AccessRandom), ErrClosed)

	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegionBounds(t *testing.T) {
	m, err := Create(filepath.Join(t.TempDir(), "f"), make([]byte, 16))
	require.NoError(t, err)
	defer m.Close()

	tests := []struct {
		off, n int
		ok     bool
	}{
		{0, 16, true},
		{16, 0, true},
		{10, 6, true},
		{10, 10, false},
		{-1, 2, false},
		{2, -1, false},
	}
	for _, tt := range tests {
		_, err := m.Region(tt.off, tt.n)
		if tt.ok {
			assert.NoError(t, err, "off=%d n=%d", tt.off, tt.n)
		} else {
			assert.ErrorIs(t, err, ErrOutOfBounds, "off=%d n=%d", tt.off, tt.n)
		}
	}
}

func TestOpenLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(m.Bytes()))
	require.NoError(t, m.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	m, err = Open(empty)
	require.NoError(t, err)
	assert.Zero(t, m.Size())
	require.NoError(t, m.Advise(AccessWillNeed))
	require.NoError(t, m.Close())
}
