// Package model defines core types shared across the segment engine.
//
// # Identity Types
//
//   - SegmentID: numeric identifier of a sealed segment
//   - Timestamp: hybrid logical timestamp used for MVCC snapshots
//   - PK: primary key value (INT64 or VARCHAR)
//
// # Search Types
//
//   - Candidate: one ranked hit (segment offset + distance)
//   - SearchRequest / SearchResult: vector search input and per-query output
package model
