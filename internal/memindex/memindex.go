// Package memindex provides the in-memory map from keys to statuses used in
// two places: as the memtable buffering writes in front of the LSM store,
// where the payload is the value string, and as the full key index of a
// hash-indexed segment, where the payload is a byte offset into the
// segment's file. The map imposes no ordering; callers that need sorted
// keys (the memtable flush) sort the key set themselves.
package memindex

import "github.com/cinderdb/cinder/internal/record"

// Index maps keys to a Status payload. The zero value is not usable;
// construct with New.
type Index[T any] struct {
	entries map[string]record.Status[T]
}

// New returns an empty index.
func New[T any]() *Index[T] {
	return &Index[T]{entries: make(map[string]record.Status[T])}
}

// Set records the status for a key, replacing any previous entry.
func (idx *Index[T]) Set(key string, status record.Status[T]) {
	idx.entries[key] = status
}

// Get returns the status recorded for a key. The second return value is
// false when the key has no entry at all, which is distinct from a
// tombstoned entry.
func (idx *Index[T]) Get(key string) (record.Status[T], bool) {
	status, ok := idx.entries[key]
	return status, ok
}

// Delete removes a key's entry entirely. This is not a tombstone write;
// use Set with a tombstone status for that.
func (idx *Index[T]) Delete(key string) {
	delete(idx.entries, key)
}

// Keys returns the indexed keys in no particular order.
func (idx *Index[T]) Keys() []string {
	keys := make([]string, 0, len(idx.entries))
	for key := range idx.entries {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of entries, tombstones included.
func (idx *Index[T]) Len() int {
	return len(idx.entries)
}
