// Package blobstore provides the remote storage abstraction a sealed segment
// loads its binlogs and index files from.
//
// Store is the interface for reading and writing immutable objects.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, writes are atomic renames
//   - MemoryStore: in-process map for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart uploads
//   - CachingStore: LRU read cache in front of any Store
//
// # Path Conventions
//
// Index files live under
//
//	<root>/[tmp/]<category>/<buildID>_<indexVersion>_<segmentID>_<fieldID>/
//
// and raw field binlogs under
//
//	<root>/<category>/<segmentID>/<fieldID>/
package blobstore
