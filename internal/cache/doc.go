// Package cache provides byte-budgeted LRU caches for remote objects.
//
// Loading a segment reads binlog and index files from a blob store; the
// cache keeps recently fetched objects so reloading a dropped field, or
// loading the same files into several segments, skips the remote round trip.
//
// ShardedLRU spreads keys over 64 independently locked shards. When a
// resource.Controller is supplied, cached bytes count against its memory
// budget and objects that do not fit are simply not cached.
package cache
