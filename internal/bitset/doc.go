// Package bitset provides a lock-free segmented bitset for concurrent access.
//
// Architecture:
//   - Segmented design: 65536 bits per segment (1024 uint64 words)
//   - Lock-free: atomic.Pointer for the segment table, atomic.Uint64 words
//   - Growth publishes a new segment table with CompareAndSwap
//
// The deletion log uses it to remember which segment rows were ever hit by a
// tombstone, so visibility masking can skip rows no delete touched.
package bitset
