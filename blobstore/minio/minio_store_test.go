package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	bucket := "test-segcore"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")
	name := blobstore.RawDataPathPrefix(store.RootPath(), 1, 101) + "0"

	data := []byte("hello minio world")
	require.NoError(t, store.Write(ctx, name, data))

	size, err := store.Size(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	got, err := store.Read(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "raw_datas/1/")
	require.NoError(t, err)
	assert.Contains(t, names, name)

	require.NoError(t, store.Remove(ctx, name))
	_, err = store.Read(ctx, name)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestKey(t *testing.T) {
	s := NewStore(nil, "b", "root/")
	assert.Equal(t, "root/raw_datas/1/101/0", s.key("raw_datas/1/101/0"))
	assert.Equal(t, "", s.RootPath())
}
