package cache

import (
	"hash/maphash"
	"sync"

	"github.com/hupe1980/segcore/internal/resource"
)

const numShards = 64

// ShardedLRU distributes entries across 64 LRU shards to reduce lock contention.
type ShardedLRU struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

var _ Cache = (*ShardedLRU)(nil)

// NewShardedLRU creates a sharded cache. The capacity is divided evenly
// across all shards.
func NewShardedLRU(capacity int64, rc *resource.Controller) *ShardedLRU {
	shardCapacity := max(capacity/numShards, 1)
	s := &ShardedLRU{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRU(shardCapacity, rc)
	}
	return s
}

func (s *ShardedLRU) shard(key Key) *LRU {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(key.Path)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(key.Offset >> (8 * i))
		buf[8+i] = byte(key.Length >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached object.
func (s *ShardedLRU) Get(key Key) ([]byte, bool) {
	return s.shard(key).Get(key)
}

// Set caches an object.
func (s *ShardedLRU) Set(key Key, b []byte) {
	s.shard(key).Set(key, b)
}

// Invalidate removes entries matching the predicate from every shard.
func (s *ShardedLRU) Invalidate(predicate func(key Key) bool) {
	var wg sync.WaitGroup
	wg.Add(numShards)
	for i := range numShards {
		go func(shard *LRU) {
			defer wg.Done()
			shard.Invalidate(predicate)
		}(s.shards[i])
	}
	wg.Wait()
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedLRU) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the total size across all shards.
func (s *ShardedLRU) Size() int64 {
	var total int64
	for i := range numShards {
		total += s.shards[i].Size()
	}
	return total
}
