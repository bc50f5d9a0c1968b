// Package cache implements the key-path blob store that backs the Codecov
// response cache. A key is an ordered list of segments (most general first)
// and every segment becomes one directory level below the cache root:
//
//	<root>/<k1>/<k2>/.../<kn>/<fileName>
//
// The store keeps no in-memory state besides the root and leaf file name, so it
// is cheap to rebuild and safe to share. Writes go through a temp file + rename
// in the entry directory; there is no locking, eviction or expiry. Callers own
// (de)serialization and are expected to supply filesystem-safe segments.
package cache
