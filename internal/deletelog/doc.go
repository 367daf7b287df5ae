// Package deletelog records the tombstones of a sealed segment and answers
// snapshot visibility questions.
//
// Tombstones are (primary key, timestamp) pairs. They are appended and never
// mutated. Two ordered trees index them: by key (for point checks) and by
// time (for "every delete at or before T" scans).
//
// A row is hidden at snapshot asOf iff a tombstone for its key exists with
// timestamp <= asOf.
//
// Appends are two-phase: Reserve claims a contiguous sequence range, Write
// fills it. The sequence orders tombstones that share a timestamp.
package deletelog
