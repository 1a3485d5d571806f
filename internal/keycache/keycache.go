// Package keycache caches decoded key records in front of internal/keyfile.
// Key records in this store are never mutated in place by the cache (an
// update that changes a record's offset goes through keyfile.Update
// directly and the caller invalidates the old offset), so this cache never
// holds dirty entries and never needs a write-back callback.
package keycache

import (
	"github.com/iamNilotpal/filekv/internal/cache"
	"github.com/iamNilotpal/filekv/internal/keyfile"
)

// DefaultCapacity is used when the host does not request a specific size.
const DefaultCapacity = 128

// Cache fronts an *keyfile.File with a bounded, offset-keyed record cache.
type Cache struct {
	kf *keyfile.File
	c  *cache.Cache[keyfile.Record]
}

// New creates a key-record cache of the given capacity in front of kf.
func New(kf *keyfile.File, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{kf: kf, c: cache.New[keyfile.Record](capacity, nil)}
}

// Get returns the key record at offset, reading through to the key file on
// a cache miss.
func (kc *Cache) Get(offset int64) (keyfile.Record, error) {
	if rec, ok := kc.c.Get(offset); ok {
		return rec, nil
	}
	rec, err := kc.kf.Read(offset)
	if err != nil {
		return keyfile.Record{}, err
	}
	if err := kc.c.Put(offset, rec, false); err != nil {
		return keyfile.Record{}, err
	}
	return rec, nil
}

// Put installs or refreshes a record in the cache.
func (kc *Cache) Put(rec keyfile.Record) error {
	return kc.c.Put(rec.Offset, rec, false)
}

// Invalidate drops offset from the cache (used after an update relocates the
// record or a delete frees it).
func (kc *Cache) Invalidate(offset int64) {
	kc.c.Delete(offset)
}

// Clear empties the cache.
func (kc *Cache) Clear() error { return kc.c.Clear() }
