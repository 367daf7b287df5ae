package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Read(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Size(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "raw_datas/7/101/0", []byte("hello")))
	require.NoError(t, s.Write(ctx, "raw_datas/7/101/1", []byte("world!")))
	require.NoError(t, s.Write(ctx, "raw_datas/7/102/0", []byte("x")))

	size, err := s.Size(ctx, "raw_datas/7/101/1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	got, err := s.Read(ctx, "raw_datas/7/101/0")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	names, err := s.List(ctx, "raw_datas/7/101/")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw_datas/7/101/0", "raw_datas/7/101/1"}, names)

	require.NoError(t, s.Write(ctx, "raw_datas/7/101/0", []byte("HELLO")))
	got, err = s.Read(ctx, "raw_datas/7/101/0")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(got))

	require.NoError(t, s.Remove(ctx, "raw_datas/7/101/0"))
	require.NoError(t, s.Remove(ctx, "raw_datas/7/101/0"))
	_, err = s.Read(ctx, "raw_datas/7/101/0")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	storeContract(t, s)

	_, err := os.Stat(filepath.Join(dir, "raw_datas", "7", "102", "0"))
	require.NoError(t, err)
	assert.Equal(t, "", s.RootPath())
}

func TestLocalStoreListMissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("bucket/root")
	storeContract(t, s)
	assert.Equal(t, "bucket/root", s.RootPath())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "files/index_files/1_2_3_101/", IndexPathPrefix("files", false, 1, 2, 3, 101))
	assert.Equal(t, "files/tmp/index_files/1_2_3_101/", IndexPathPrefix("files", true, 1, 2, 3, 101))
	assert.Equal(t, "index_files/1_2_3_101/", IndexPathPrefix("", false, 1, 2, 3, 101))
	assert.Equal(t, "files/raw_datas/3/101/", RawDataPathPrefix("files", 3, 101))
	assert.Equal(t, "files/delta_logs/3/", DeltaPathPrefix("files", 3))
}
