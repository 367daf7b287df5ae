// Package rowindex holds per-row metadata of a sealed segment: insertion
// timestamps, row ids and primary keys, and resolves primary keys to row
// offsets.
//
// Two resolvers exist, fixed at construction:
//
//   - sorted: rows are ordered by primary key; lookups binary search for the
//     first match and scan the run of equal keys
//   - hashed: a map from primary key to every offset holding it
//
// Both filter candidates by the snapshot bound and allow duplicate keys.
package rowindex
