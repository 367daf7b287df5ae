package cache

// Key identifies a cached object by its storage path.
type Key struct {
	Path string
	// Offset and Length identify a byte range; both are zero for whole objects.
	Offset int64
	Length int64
}

// Cache is a byte-oriented cache for immutable objects.
// Returned slices must be treated as read-only.
type Cache interface {
	// Get returns a cached object. ok=false if missing.
	Get(key Key) (b []byte, ok bool)
	// Set caches an object. The cache retains b; callers must not modify it.
	Set(key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
	// Size returns the cached bytes.
	Size() int64
}
