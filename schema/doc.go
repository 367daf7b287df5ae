// Package schema describes the columns of a sealed segment.
//
// A Schema is an immutable, ordered set of Fields. Each field carries a
// DataType from a closed set; every read path switches on it exactly once.
//
// # System Fields
//
// Every segment carries two system columns next to the user fields:
//
//   - RowIDField (0): per-row row id
//   - TimestampField (1): per-row insertion timestamp
//
// User field ids start at StartUserFieldID.
//
// # Row Encodings
//
// Fixed-width values are little-endian. Vector rows are opaque fixed-stride
// blobs except SparseFloatVector, whose rows are variable-length sequences of
// (uint32 index, float32 value) pairs (see EncodeSparse).
package schema
