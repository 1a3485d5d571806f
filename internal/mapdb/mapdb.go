// Package mapdb wires the key file, value file, index file, node cache, key
// cache and optional hash-side file into a single ordered map controller.
// It owns the B-tree search/insert/delete algorithms; every other internal
// package is restricted to record or node I/O and never compares keys
// against each other.
package mapdb

import (
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/hashfile"
	"github.com/iamNilotpal/filekv/internal/idxfile"
	"github.com/iamNilotpal/filekv/internal/keycache"
	"github.com/iamNilotpal/filekv/internal/keyfile"
	"github.com/iamNilotpal/filekv/internal/nodecache"
	"github.com/iamNilotpal/filekv/internal/valuefile"
	"github.com/iamNilotpal/filekv/pkg/errors"
	"github.com/iamNilotpal/filekv/pkg/keytype"
)

// Config bundles the per-map tuning knobs the facade resolves from options
// before opening a map's files.
type Config struct {
	ChunkOpts         []chunkfile.Option
	NodeCacheCapacity int
	KeyCacheCapacity  int
	HashEnabled       bool
	HashTableSize     uint64
	Logger            *zap.SugaredLogger
}

// DB is a single ordered map backed by a `<name>.idx`/`.key`/`.val` triple
// and an optional `.htx` side file, all inside one directory.
type DB struct {
	name   string
	kind   keytype.Kind
	keys   *keyfile.File
	values *valuefile.File
	idx    *idxfile.File
	nodes  *nodecache.Cache
	keyc   *keycache.Cache
	hash   *hashfile.File
	dirty  bool
	logger *zap.SugaredLogger

	// mu serializes every public operation against the engine's background
	// compaction ticker, which calls SyncData on its own goroutine; a map's
	// B-tree walks are not otherwise reentrant-safe.
	mu sync.Mutex
}

// Open opens or creates the map named name inside dir.
func Open(dir, name string, kind keytype.Kind, cfg Config) (*DB, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	kf, err := keyfile.Open(filepath.Join(dir, name+".key"), kind, cfg.ChunkOpts...)
	if err != nil {
		return nil, err
	}
	vf, err := valuefile.Open(filepath.Join(dir, name+".val"), cfg.ChunkOpts...)
	if err != nil {
		return nil, err
	}
	ix, err := idxfile.Open(filepath.Join(dir, name+".idx"), kind, cfg.ChunkOpts...)
	if err != nil {
		return nil, err
	}

	var hf *hashfile.File
	if cfg.HashEnabled {
		hf, err = hashfile.Open(filepath.Join(dir, name+".htx"), cfg.HashTableSize, cfg.ChunkOpts...)
		if err != nil {
			return nil, err
		}
	}

	return &DB{
		name:   name,
		kind:   kind,
		keys:   kf,
		values: vf,
		idx:    ix,
		nodes:  nodecache.New(ix, cfg.NodeCacheCapacity),
		keyc:   keycache.New(kf, cfg.KeyCacheCapacity),
		hash:   hf,
		logger: logger,
	}, nil
}

// Name returns the map's name.
func (db *DB) Name() string { return db.name }

// Kind returns the map's key type.
func (db *DB) Kind() keytype.Kind { return db.kind }

func (db *DB) setHashSlot(key keytype.Key, keyOffset int64) error {
	if db.hash == nil {
		return nil
	}
	return db.hash.Set(key.AsBytes(), keyOffset)
}

func (db *DB) clearHashSlot(key keytype.Key) error {
	if db.hash == nil {
		return nil
	}
	return db.hash.Clear(key.AsBytes())
}

// keyAt decodes the key stored in the record at offset via the key cache.
func (db *DB) keyAt(offset int64) (keytype.Key, keyfile.Record, error) {
	rec, err := db.keyc.Get(offset)
	if err != nil {
		return nil, keyfile.Record{}, err
	}
	k, err := keytype.FromBytes(db.kind, rec.Key)
	return k, rec, err
}

// searchNode binary-searches n's keys for probe, returning either the exact
// match index or the child-descent index.
func (db *DB) searchNode(n *idxfile.Node, probe keytype.Key) (int, bool, error) {
	lo, hi := 0, len(n.Keys)
	for lo < hi {
		mid := (lo + hi) / 2
		k, _, err := db.keyAt(n.Keys[mid])
		if err != nil {
			return 0, false, err
		}
		switch c := keytype.Compare(k, probe); {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}

func insertAt(s []int64, idx int, v int64) []int64 {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeAt(s []int64, idx int) []int64 {
	return append(s[:idx], s[idx+1:]...)
}

func isUnderflow(n *idxfile.Node) bool {
	return len(n.Downs) < idxfile.NodeSlotsMaxHalf
}

// Get looks up key, consulting the hash-side file first when present.
func (db *DB) Get(key keytype.Key) ([]byte, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	value, found, err := db.get(key)
	if err != nil {
		db.logError("Get", err)
	}
	return value, found, err
}

func (db *DB) get(key keytype.Key) ([]byte, bool, error) {
	if db.hash != nil {
		slot, err := db.hash.Lookup(key.AsBytes())
		if err != nil {
			return nil, false, err
		}
		if slot != 0 {
			k, rec, err := db.keyAt(slot)
			if err != nil {
				return nil, false, err
			}
			if keytype.Compare(k, key) == 0 {
				valRec, err := db.values.Read(rec.ValueOffset)
				if err != nil {
					return nil, false, err
				}
				return valRec.Value, true, nil
			}
		}
	}

	top, err := db.idx.ReadTopNodeOffset()
	if err != nil {
		return nil, false, err
	}
	offset := top
	for {
		n, err := db.nodes.Get(offset)
		if err != nil {
			return nil, false, err
		}
		idx, found, err := db.searchNode(n, key)
		if err != nil {
			return nil, false, err
		}
		if found {
			_, rec, err := db.keyAt(n.Keys[idx])
			if err != nil {
				return nil, false, err
			}
			valRec, err := db.values.Read(rec.ValueOffset)
			if err != nil {
				return nil, false, err
			}
			return valRec.Value, true, nil
		}
		if n.IsLeaf() {
			return nil, false, nil
		}
		offset = n.Downs[idx]
	}
}

// HasKey reports whether key is present. It runs the same lookup as Get,
// including the read of the value record, and discards the value.
func (db *DB) HasKey(key keytype.Key) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, found, err := db.get(key)
	if err != nil {
		db.logError("HasKey", err)
	}
	return found, err
}

type splitCandidate struct {
	KeyOffset int64
	Right     int64
}

// Put inserts or updates key with value.
func (db *DB) Put(key keytype.Key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.put(key, value); err != nil {
		db.logError("Put", err)
		return err
	}
	return nil
}

func (db *DB) put(key keytype.Key, value []byte) error {
	top, err := db.idx.ReadTopNodeOffset()
	if err != nil {
		return err
	}
	newTop, split, err := db.insert(top, key, value)
	if err != nil {
		return err
	}
	if split != nil {
		root := &idxfile.Node{Keys: []int64{split.KeyOffset}, Downs: []int64{newTop, split.Right}}
		offset, _, err := db.nodes.Allocate(root)
		if err != nil {
			return err
		}
		if err := db.idx.WriteTopNodeOffset(offset); err != nil {
			return err
		}
	} else if newTop != top {
		if err := db.idx.WriteTopNodeOffset(newTop); err != nil {
			return err
		}
	}
	db.dirty = true
	return nil
}

// BulkPut folds Put over pairs in slice order, holding the map's lock for
// the whole batch.
func (db *DB) BulkPut(pairs []KV) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, kv := range pairs {
		if err := db.put(kv.Key, kv.Value); err != nil {
			db.logError("BulkPut", err)
			return err
		}
	}
	return nil
}

// KV is a single key/value pair used by BulkPut.
type KV struct {
	Key   keytype.Key
	Value []byte
}

func (db *DB) insert(nodeOffset int64, key keytype.Key, value []byte) (int64, *splitCandidate, error) {
	n, err := db.nodes.Get(nodeOffset)
	if err != nil {
		return 0, nil, err
	}
	idx, found, err := db.searchNode(n, key)
	if err != nil {
		return 0, nil, err
	}

	if found {
		keyOffset := n.Keys[idx]
		rec, err := db.keyc.Get(keyOffset)
		if err != nil {
			return 0, nil, err
		}
		valRec, err := db.values.Read(rec.ValueOffset)
		if err != nil {
			return 0, nil, err
		}
		newValueOffset, _, err := db.values.Update(valRec, value)
		if err != nil {
			return 0, nil, err
		}
		if newValueOffset != rec.ValueOffset {
			newKeyOffset, _, err := db.keys.Update(rec, newValueOffset)
			if err != nil {
				return 0, nil, err
			}
			db.keyc.Invalidate(keyOffset)
			if newKeyOffset != keyOffset {
				n.Keys[idx] = newKeyOffset
				if err := db.setHashSlot(key, newKeyOffset); err != nil {
					return 0, nil, err
				}
				offset, _, err := db.nodes.Save(n)
				return offset, nil, err
			}
		}
		if err := db.setHashSlot(key, keyOffset); err != nil {
			return 0, nil, err
		}
		return nodeOffset, nil, nil
	}

	if !n.IsLeaf() {
		childOffset := n.Downs[idx]
		newChildOffset, childSplit, err := db.insert(childOffset, key, value)
		if err != nil {
			return 0, nil, err
		}
		n.Downs[idx] = newChildOffset
		if childSplit != nil {
			n.Keys = insertAt(n.Keys, idx, childSplit.KeyOffset)
			n.Downs = insertAt(n.Downs, idx+1, childSplit.Right)
		}
		return db.finishInsertWrite(n)
	}

	valueOffset, _, err := db.values.Add(value)
	if err != nil {
		return 0, nil, err
	}
	keyOffset, _, err := db.keys.Add(key.AsBytes(), valueOffset)
	if err != nil {
		return 0, nil, err
	}
	n.Keys = insertAt(n.Keys, idx, keyOffset)
	n.Downs = insertAt(n.Downs, idx+1, 0)
	if err := db.setHashSlot(key, keyOffset); err != nil {
		return 0, nil, err
	}
	return db.finishInsertWrite(n)
}

// finishInsertWrite persists n, splitting it at the median if it has grown
// past NodeSlotsMax keys.
func (db *DB) finishInsertWrite(n *idxfile.Node) (int64, *splitCandidate, error) {
	if len(n.Keys) <= idxfile.NodeSlotsMax {
		offset, _, err := db.nodes.Save(n)
		return offset, nil, err
	}

	mid := len(n.Keys) / 2
	medianKeyOffset := n.Keys[mid]

	left := &idxfile.Node{
		Offset:    n.Offset,
		PieceSize: n.PieceSize,
		Keys:      append([]int64(nil), n.Keys[:mid]...),
		Downs:     append([]int64(nil), n.Downs[:mid+1]...),
	}
	right := &idxfile.Node{
		Keys:  append([]int64(nil), n.Keys[mid+1:]...),
		Downs: append([]int64(nil), n.Downs[mid+1:]...),
	}

	leftOffset, _, err := db.nodes.Save(left)
	if err != nil {
		return 0, nil, err
	}
	rightOffset, _, err := db.nodes.Allocate(right)
	if err != nil {
		return 0, nil, err
	}
	return leftOffset, &splitCandidate{KeyOffset: medianKeyOffset, Right: rightOffset}, nil
}

// Delete removes key, if present; deleting a missing key is a silent no-op.
func (db *DB) Delete(key keytype.Key) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.deleteKey(key); err != nil {
		db.logError("Delete", err)
		return err
	}
	return nil
}

func (db *DB) deleteKey(key keytype.Key) error {
	top, err := db.idx.ReadTopNodeOffset()
	if err != nil {
		return err
	}
	newTop, _, err := db.delete(top, key)
	if err != nil {
		return err
	}

	root, err := db.nodes.Get(newTop)
	if err != nil {
		return err
	}
	if !root.IsLeaf() && len(root.Keys) == 0 {
		child := root.Downs[0]
		if err := db.nodes.Delete(root.Offset, root.PieceSize); err != nil {
			return err
		}
		newTop = child
	}

	if newTop != top {
		if err := db.idx.WriteTopNodeOffset(newTop); err != nil {
			return err
		}
	}
	db.dirty = true
	return nil
}

func (db *DB) delete(nodeOffset int64, key keytype.Key) (int64, bool, error) {
	n, err := db.nodes.Get(nodeOffset)
	if err != nil {
		return 0, false, err
	}
	idx, found, err := db.searchNode(n, key)
	if err != nil {
		return 0, false, err
	}

	if !found {
		if n.IsLeaf() {
			return nodeOffset, false, nil
		}
		childOffset := n.Downs[idx]
		newChildOffset, childUnderflow, err := db.delete(childOffset, key)
		if err != nil {
			return 0, false, err
		}
		n.Downs[idx] = newChildOffset
		if childUnderflow {
			if err := db.healUnderflow(n, idx); err != nil {
				return 0, false, err
			}
		}
		offset, _, err := db.nodes.Save(n)
		return offset, isUnderflow(n), err
	}

	if n.IsLeaf() {
		keyOffset := n.Keys[idx]
		if err := db.freeKeyValue(keyOffset); err != nil {
			return 0, false, err
		}
		if err := db.clearHashSlot(key); err != nil {
			return 0, false, err
		}
		n.Keys = removeAt(n.Keys, idx)
		n.Downs = removeAt(n.Downs, idx+1)
		offset, _, err := db.nodes.Save(n)
		return offset, isUnderflow(n), err
	}

	newChildOffset, predKeyOffset, childUnderflow, err := db.deleteMax(n.Downs[idx])
	if err != nil {
		return 0, false, err
	}
	oldKeyOffset := n.Keys[idx]
	n.Keys[idx] = predKeyOffset
	n.Downs[idx] = newChildOffset
	if err := db.freeKeyValue(oldKeyOffset); err != nil {
		return 0, false, err
	}
	if err := db.clearHashSlot(key); err != nil {
		return 0, false, err
	}
	if childUnderflow {
		if err := db.healUnderflow(n, idx); err != nil {
			return 0, false, err
		}
	}
	offset, _, err := db.nodes.Save(n)
	return offset, isUnderflow(n), err
}

// deleteMax removes and returns the offset of the largest key in the
// subtree rooted at nodeOffset, without freeing its key/value record (the
// caller reuses the offset, typically promoting it into an internal node).
func (db *DB) deleteMax(nodeOffset int64) (int64, int64, bool, error) {
	n, err := db.nodes.Get(nodeOffset)
	if err != nil {
		return 0, 0, false, err
	}

	if n.IsLeaf() {
		last := len(n.Keys) - 1
		removed := n.Keys[last]
		n.Keys = n.Keys[:last]
		n.Downs = n.Downs[:last+1]
		offset, _, err := db.nodes.Save(n)
		return offset, removed, isUnderflow(n), err
	}

	lastChild := len(n.Downs) - 1
	newChildOffset, removed, childUnderflow, err := db.deleteMax(n.Downs[lastChild])
	if err != nil {
		return 0, 0, false, err
	}
	n.Downs[lastChild] = newChildOffset
	if childUnderflow {
		if err := db.healUnderflow(n, lastChild); err != nil {
			return 0, 0, false, err
		}
	}
	offset, _, err := db.nodes.Save(n)
	return offset, removed, isUnderflow(n), err
}

func (db *DB) freeKeyValue(keyOffset int64) error {
	rec, err := db.keyc.Get(keyOffset)
	if err != nil {
		return err
	}
	valRec, err := db.values.Read(rec.ValueOffset)
	if err != nil {
		return err
	}
	if _, err := db.values.Delete(valRec.Offset, valRec.PieceSize); err != nil {
		return err
	}
	if _, err := db.keys.Delete(rec.Offset, rec.PieceSize); err != nil {
		return err
	}
	db.keyc.Invalidate(keyOffset)
	return nil
}

// healUnderflow repairs parent.Downs[childIdx], which has dropped below
// NodeSlotsMaxHalf children, by rotating through a sibling with room to
// spare or, failing that, merging with one.
func (db *DB) healUnderflow(parent *idxfile.Node, childIdx int) error {
	child, err := db.nodes.Get(parent.Downs[childIdx])
	if err != nil {
		return err
	}

	if childIdx > 0 {
		left, err := db.nodes.Get(parent.Downs[childIdx-1])
		if err != nil {
			return err
		}
		if len(left.Downs) > idxfile.NodeSlotsMaxHalf {
			return db.rotateRight(parent, childIdx, left, child)
		}
	}
	if childIdx < len(parent.Downs)-1 {
		right, err := db.nodes.Get(parent.Downs[childIdx+1])
		if err != nil {
			return err
		}
		if len(right.Downs) > idxfile.NodeSlotsMaxHalf {
			return db.rotateLeft(parent, childIdx, child, right)
		}
	}
	if childIdx > 0 {
		left, err := db.nodes.Get(parent.Downs[childIdx-1])
		if err != nil {
			return err
		}
		return db.mergeChildren(parent, childIdx-1, left, child)
	}
	right, err := db.nodes.Get(parent.Downs[childIdx+1])
	if err != nil {
		return err
	}
	return db.mergeChildren(parent, childIdx, child, right)
}

func (db *DB) rotateRight(parent *idxfile.Node, childIdx int, left, child *idxfile.Node) error {
	sepIdx := childIdx - 1
	lastKey := len(left.Keys) - 1
	lastDown := len(left.Downs) - 1

	child.Keys = insertAt(child.Keys, 0, parent.Keys[sepIdx])
	child.Downs = insertAt(child.Downs, 0, left.Downs[lastDown])
	if child.IsLeaf() {
		child.Downs[0] = 0
	}
	parent.Keys[sepIdx] = left.Keys[lastKey]
	left.Keys = left.Keys[:lastKey]
	left.Downs = left.Downs[:lastDown]

	newLeftOffset, _, err := db.nodes.Save(left)
	if err != nil {
		return err
	}
	parent.Downs[childIdx-1] = newLeftOffset
	newChildOffset, _, err := db.nodes.Save(child)
	if err != nil {
		return err
	}
	parent.Downs[childIdx] = newChildOffset
	return nil
}

func (db *DB) rotateLeft(parent *idxfile.Node, childIdx int, child, right *idxfile.Node) error {
	sepIdx := childIdx

	child.Keys = append(child.Keys, parent.Keys[sepIdx])
	child.Downs = append(child.Downs, right.Downs[0])
	if child.IsLeaf() {
		child.Downs[len(child.Downs)-1] = 0
	}
	parent.Keys[sepIdx] = right.Keys[0]
	right.Keys = right.Keys[1:]
	right.Downs = right.Downs[1:]

	newChildOffset, _, err := db.nodes.Save(child)
	if err != nil {
		return err
	}
	parent.Downs[childIdx] = newChildOffset
	newRightOffset, _, err := db.nodes.Save(right)
	if err != nil {
		return err
	}
	parent.Downs[childIdx+1] = newRightOffset
	return nil
}

func (db *DB) mergeChildren(parent *idxfile.Node, leftIdx int, left, right *idxfile.Node) error {
	sep := parent.Keys[leftIdx]
	left.Keys = append(left.Keys, sep)
	left.Keys = append(left.Keys, right.Keys...)
	left.Downs = append(left.Downs, right.Downs...)

	if err := db.nodes.Delete(right.Offset, right.PieceSize); err != nil {
		return err
	}
	newLeftOffset, _, err := db.nodes.Save(left)
	if err != nil {
		return err
	}
	parent.Downs[leftIdx] = newLeftOffset
	parent.Keys = removeAt(parent.Keys, leftIdx)
	parent.Downs = removeAt(parent.Downs, leftIdx+1)
	return nil
}

// Iterate walks every (key, value) pair in ascending key order. Mutating
// the map while an iteration is in flight is not supported.
func (db *DB) Iterate(fn func(key keytype.Key, value []byte) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.iterate(fn); err != nil {
		db.logError("Iterate", err)
		return err
	}
	return nil
}

func (db *DB) iterate(fn func(key keytype.Key, value []byte) error) error {
	top, err := db.idx.ReadTopNodeOffset()
	if err != nil {
		return err
	}
	return db.idx.InOrder(top, func(keyOffset int64) error {
		rec, err := db.keys.Read(keyOffset)
		if err != nil {
			return err
		}
		k, err := keytype.FromBytes(db.kind, rec.Key)
		if err != nil {
			return err
		}
		valRec, err := db.values.Read(rec.ValueOffset)
		if err != nil {
			return err
		}
		return fn(k, valRec.Value)
	})
}

// Stats collects the B-tree's structural diagnostics: depth, balance and
// density checks, an in-order key-ordering validity check, node/key counts
// and the free-list population per size class. It is read-only and exists
// for introspection tooling, not the hot path.
func (db *DB) Stats() (idxfile.Stats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	stats, err := db.stats()
	if err != nil {
		db.logError("Stats", err)
	}
	return stats, err
}

func (db *DB) stats() (idxfile.Stats, error) {
	less := func(a, b int64) (bool, error) {
		ka, _, err := db.keyAt(a)
		if err != nil {
			return false, err
		}
		kb, _, err := db.keyAt(b)
		if err != nil {
			return false, err
		}
		return keytype.Compare(ka, kb) < 0, nil
	}
	return db.idx.CollectStats(less)
}

// ReadFillBuffer prefetches the root node and its immediate children, a
// cheap heuristic for warming the node cache before a burst of lookups.
func (db *DB) ReadFillBuffer() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.readFillBuffer(); err != nil {
		db.logError("ReadFillBuffer", err)
		return err
	}
	return nil
}

func (db *DB) readFillBuffer() error {
	top, err := db.idx.ReadTopNodeOffset()
	if err != nil {
		return err
	}
	n, err := db.nodes.Get(top)
	if err != nil {
		return err
	}
	if n.IsLeaf() {
		return nil
	}
	for _, d := range n.Downs {
		if d != 0 {
			if _, err := db.nodes.Get(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes back every dirty chunk without forcing a sync; a no-op when
// nothing has changed since the last flush or sync.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.dirty {
		return nil
	}
	if err := db.keys.Flush(); err != nil {
		db.logError("Flush", err)
		return err
	}
	if err := db.values.Flush(); err != nil {
		db.logError("Flush", err)
		return err
	}
	if err := db.idx.Flush(); err != nil {
		db.logError("Flush", err)
		return err
	}
	if db.hash != nil {
		if err := db.hash.Flush(); err != nil {
			db.logError("Flush", err)
			return err
		}
	}
	db.dirty = false
	return nil
}

// SyncData flushes then forces file data to stable storage.
func (db *DB) SyncData() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.dirty {
		return nil
	}
	if err := db.keys.SyncData(); err != nil {
		db.logError("SyncData", err)
		return err
	}
	if err := db.values.SyncData(); err != nil {
		db.logError("SyncData", err)
		return err
	}
	if err := db.idx.SyncData(); err != nil {
		db.logError("SyncData", err)
		return err
	}
	if db.hash != nil {
		if err := db.hash.SyncData(); err != nil {
			db.logError("SyncData", err)
			return err
		}
	}
	db.dirty = false
	return nil
}

// SyncAll flushes then forces file data and metadata to stable storage.
func (db *DB) SyncAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.dirty {
		return nil
	}
	if err := db.keys.SyncAll(); err != nil {
		db.logError("SyncAll", err)
		return err
	}
	if err := db.values.SyncAll(); err != nil {
		db.logError("SyncAll", err)
		return err
	}
	if err := db.idx.SyncAll(); err != nil {
		db.logError("SyncAll", err)
		return err
	}
	if db.hash != nil {
		if err := db.hash.SyncAll(); err != nil {
			db.logError("SyncAll", err)
			return err
		}
	}
	db.dirty = false
	return nil
}

// Close flushes and closes every underlying file, collecting every error
// encountered rather than stopping at the first.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var err error
	err = multierr.Append(err, db.keys.Close())
	err = multierr.Append(err, db.values.Close())
	err = multierr.Append(err, db.idx.Close())
	if db.hash != nil {
		err = multierr.Append(err, db.hash.Close())
	}
	if err != nil {
		db.logError("Close", err)
	}
	return err
}

// logError emits a structured log line for a failing operation, surfacing
// the error code and any contextual details pkg/errors captured at the
// point of failure.
func (db *DB) logError(op string, err error) {
	db.logger.Errorw(
		"map operation failed",
		"map", db.name,
		"operation", op,
		"code", errors.GetErrorCode(err),
		"details", errors.GetErrorDetails(err),
		"error", err,
	)
}
