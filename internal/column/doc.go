// Package column implements chunked columnar storage for sealed segments.
//
// # Layout
//
// A field's rows are split into Chunks of a configured row count. Each chunk
// is one contiguous buffer:
//
//	[validity bitmap][offset table][values]
//
// The validity bitmap (one bit per row, LSB first) is present only for
// nullable fields. The offset table ((rows+1) little-endian uint64) is present
// only for variable-length types. Fixed-width values, including dense vectors,
// are opaque fixed-stride rows.
//
// # Memory
//
// Chunk memory is either heap-resident (owned by the chunk) or a non-owning
// mmap.Region of a per-field file mapping owned by the ChunkedColumn. The
// storage mode is chosen once per field by MmapPolicy.
//
// # Concurrency
//
// Store publishes per-field state through atomic pointers. Readers Pin a
// column and release it when done; Drop unpublishes the column and memory is
// released once the last pin is gone.
package column
