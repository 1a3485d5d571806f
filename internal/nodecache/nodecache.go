// Package nodecache caches decoded B-tree nodes in front of internal/idxfile
// so repeated descents during a single lookup or mutation do not re-decode
// the same node from disk. Mutations are write-through: because a node
// rewrite can relocate it to a new offset (when its serialized size
// outgrows its piece size), the caller needs the resulting offset
// immediately to repoint whichever parent pointer referenced the old one,
// so Save persists through internal/idxfile.WriteNode synchronously rather
// than deferring. "Write-through" here still only reaches the buffered
// chunk file, not disk — internal/chunkfile keeps the bytes resident until
// the controller's own Flush/Sync calls. What the cache actually saves is
// repeated VarInt decoding and binary search over already-resident nodes.
package nodecache

import (
	"github.com/iamNilotpal/filekv/internal/cache"
	"github.com/iamNilotpal/filekv/internal/idxfile"
)

// DefaultCapacity is used when the host does not request a specific size.
const DefaultCapacity = 64

// Cache fronts an *idxfile.File with a bounded, offset-keyed node cache.
type Cache struct {
	idx *idxfile.File
	c   *cache.Cache[*idxfile.Node]
}

// New creates a node cache of the given capacity in front of idx.
func New(idx *idxfile.File, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{idx: idx, c: cache.New[*idxfile.Node](capacity, nil)}
}

// Get returns the node at offset, reading through to the index file on a
// cache miss.
func (nc *Cache) Get(offset int64) (*idxfile.Node, error) {
	if n, ok := nc.c.Get(offset); ok {
		return n, nil
	}
	n, err := nc.idx.ReadNode(offset)
	if err != nil {
		return nil, err
	}
	if err := nc.c.Put(offset, n, false); err != nil {
		return nil, err
	}
	return n, nil
}

// Save persists a mutated node and refreshes the cache at its (possibly
// new) offset, invalidating the stale entry if the node relocated.
func (nc *Cache) Save(n *idxfile.Node) (int64, uint32, error) {
	old := n.Offset
	offset, pieceSize, err := nc.idx.WriteNode(n)
	if err != nil {
		return 0, 0, err
	}
	if old != 0 && old != offset {
		nc.c.Delete(old)
	}
	if err := nc.c.Put(offset, n, false); err != nil {
		return 0, 0, err
	}
	return offset, pieceSize, nil
}

// Allocate writes n as a brand-new node and caches it.
func (nc *Cache) Allocate(n *idxfile.Node) (int64, uint32, error) {
	offset, pieceSize, err := nc.idx.AllocateNode(n)
	if err != nil {
		return 0, 0, err
	}
	if err := nc.c.Put(offset, n, false); err != nil {
		return 0, 0, err
	}
	return offset, pieceSize, nil
}

// Delete frees the node's piece and drops it from the cache.
func (nc *Cache) Delete(offset int64, pieceSize uint32) error {
	nc.c.Delete(offset)
	return nc.idx.DeleteNode(offset, pieceSize)
}

// Invalidate drops offset from the cache without freeing it (used when the
// caller has already written the piece's replacement elsewhere).
func (nc *Cache) Invalidate(offset int64) {
	nc.c.Delete(offset)
}

// Flush is a no-op: every mutation already reached the index file through
// Save. It exists so callers can treat the node cache uniformly with the
// key cache and the underlying buffered files.
func (nc *Cache) Flush() error { return nil }

// Clear empties the cache.
func (nc *Cache) Clear() error { return nc.c.Clear() }
