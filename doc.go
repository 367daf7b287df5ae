// Package segcore implements the sealed segment of a vector database: an
// immutable, chunked columnar storage unit that serves primary key lookups,
// bulk row retrieval and vector search over flushed data.
//
// A segment is created from a schema and filled incrementally. Field data,
// persisted indexes and tombstones arrive independently and in any order:
//
//	seg, _ := segcore.New(7, sch, segcore.WithStore(store))
//	_ = seg.LoadFieldData(ctx, segcore.LoadFieldDataInfo{Fields: binlogs})
//	_ = seg.LoadIndex(ctx, segcore.LoadIndexInfo{FieldID: 101, BuildID: 3, IndexVersion: 1})
//	_ = seg.LoadDeletedRecord(ctx, segcore.LoadDeletedRecordInfo{Paths: deltas})
//
// # Visibility
//
// Every read takes a snapshot timestamp. A row is visible at asOf when it was
// inserted at or before asOf and its primary key has no tombstone at or before
// asOf.
//
// # Indexes
//
// A vector field is searched through its index when one is installed. Until a
// persisted index arrives, an interim IVF_FLAT index may be built from raw
// vectors (see config.InterimIndex). Without any index, rows are scored by
// brute force. All paths rank by distance and break ties by offset.
//
// # Storage
//
// Columns are split into chunks of config.Config.ChunkRows rows. Vector and
// variable length columns above a size threshold may be file mapped. Remote
// files are read through a blobstore.Store with a bounded parallel degree.
package segcore
