package blobstore

import (
	"context"

	"github.com/hupe1980/segcore/internal/cache"
)

// CachingStore wraps a Store and caches whole objects read through it.
// Objects are immutable once written, so entries are only invalidated when
// the same name is written or removed through this store.
type CachingStore struct {
	inner Store
	cache cache.Cache
}

var _ Store = (*CachingStore)(nil)

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner Store, c cache.Cache) *CachingStore {
	return &CachingStore{inner: inner, cache: c}
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Path == name })
}

// RootPath returns the root of the wrapped store.
func (s *CachingStore) RootPath() string { return s.inner.RootPath() }

// Size serves cached objects without a remote call.
func (s *CachingStore) Size(ctx context.Context, name string) (int64, error) {
	if b, ok := s.cache.Get(cache.Key{Path: name}); ok {
		return int64(len(b)), nil
	}
	return s.inner.Size(ctx, name)
}

// Read returns a cached object or reads and caches it.
// The returned slice is shared with the cache and must not be modified.
func (s *CachingStore) Read(ctx context.Context, name string) ([]byte, error) {
	key := cache.Key{Path: name}
	if b, ok := s.cache.Get(key); ok {
		return b, nil
	}
	b, err := s.inner.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, b)
	return b, nil
}

// Write invalidates the cached object and writes through.
func (s *CachingStore) Write(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Write(ctx, name, data)
}

// Remove invalidates the cached object and removes it from the wrapped store.
func (s *CachingStore) Remove(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Remove(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
