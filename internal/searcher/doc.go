// Package searcher ranks vector search candidates.
//
// TopK keeps the best k candidates of one query. Candidates are ordered by
// score under the metric direction, ties broken by ascending row offset, so
// brute force and indexed searches rank identically.
//
// Scorer computes query-to-row scores directly on encoded rows for every
// vector data type.
package searcher
