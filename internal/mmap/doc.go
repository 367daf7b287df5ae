// Package mmap maps spilled column files read-only.
//
// A sealed segment may move large fields off the Go heap: the column store
// writes the encoded chunks of a field to one local file and maps it. The
// Mapping owns the file. Each chunk reads through a Region, a bounds-checked
// window that never outlives its Mapping:
//
//	m, err := mmap.Create(path, encoded)
//	if err != nil { ... }
//	defer m.Close()
//
//	r, _ := m.Region(off, n)
//	_ = m.Advise(mmap.AccessWillNeed)
//
// On Unix the file is mapped with mmap(2) and hints go through madvise(2).
// On Windows a read-only view is used and hints are ignored.
//
// Close is idempotent. After Close, Bytes on the Mapping and on every Region
// returns nil.
package mmap
