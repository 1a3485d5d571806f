// Package hashfile implements the optional hash-table side file
// ("<name>.htx"). It accelerates point lookups by mapping hash(key) mod T
// directly to a key-record offset, bypassing the B-tree descent; it is
// never consulted for range operations, which always go through the index
// file.
package hashfile

import (
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/pkg/errors"
)

// HeaderSize is the fixed hash-file header length in bytes.
const HeaderSize = 128

const (
	htSizePos = 16
	countPos  = 24
)

// DefaultTableSize is the slot count used when the host does not request a
// specific size.
const DefaultTableSize = 10 * 1024 * 1024

var signature1 = [8]byte{'s', 'i', 'a', 'm', 'd', 'b', 'H', 0}

// File is the fixed-size flat hash table mapping hash(key) mod T to a
// key-record offset. Unlike the key/value/index files it carries no
// piece allocator: every slot is a fixed 8-byte offset field.
type File struct {
	*chunkfile.File
	tableSize uint64
}

// Open opens or creates the hash file at path with the given table size
// (ignored if the file already exists; the size recorded in its header is
// used instead).
func Open(path string, tableSize uint64, opts ...chunkfile.Option) (*File, error) {
	if tableSize == 0 {
		tableSize = DefaultTableSize
	}
	cf, err := chunkfile.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	f := &File{File: cf, tableSize: tableSize}
	if cf.Len() == 0 {
		if err := f.writeInitHeader(); err != nil {
			return nil, err
		}
		if err := f.zeroTable(); err != nil {
			return nil, err
		}
	} else {
		if err := f.checkHeader(); err != nil {
			return nil, err
		}
		size, err := f.readHTSize()
		if err != nil {
			return nil, err
		}
		f.tableSize = size
	}
	return f, nil
}

func (f *File) writeInitHeader() error {
	if _, err := f.SeekFromStart(0); err != nil {
		return err
	}
	if err := f.WriteAll(signature1[:]); err != nil {
		return err
	}
	zero := make([]byte, HeaderSize-8)
	if err := f.WriteAll(zero); err != nil {
		return err
	}
	return f.writeU64At(htSizePos, f.tableSize)
}

func (f *File) zeroTable() error {
	if _, err := f.SeekFromStart(HeaderSize); err != nil {
		return err
	}
	return f.WriteZeroTo(HeaderSize + int64(f.tableSize)*8)
}

func (f *File) checkHeader() error {
	if _, err := f.SeekFromStart(0); err != nil {
		return err
	}
	var sig1 [8]byte
	if err := f.ReadExact(sig1[:]); err != nil {
		return err
	}
	if sig1 != signature1 {
		return errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "hashfile: bad header signature",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithDetail("signature", sig1)
	}
	return nil
}

func (f *File) readU64At(pos int64) (uint64, error) {
	if _, err := f.SeekFromStart(pos); err != nil {
		return 0, err
	}
	var buf [8]byte
	if err := f.ReadExactSmall(buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func (f *File) writeU64At(pos int64, v uint64) error {
	if _, err := f.SeekFromStart(pos); err != nil {
		return err
	}
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return f.WriteAllSmall(buf[:])
}

func (f *File) readHTSize() (uint64, error) { return f.readU64At(htSizePos) }

// Count returns the number of occupied slots recorded in the header.
func (f *File) Count() (uint64, error) { return f.readU64At(countPos) }

// TableSize returns the table's slot count.
func (f *File) TableSize() uint64 { return f.tableSize }

// Slot maps a key's hash to its table slot index.
func (f *File) Slot(key []byte) uint64 {
	return xxhash.Sum64(key) % f.tableSize
}

func slotPos(idx uint64) int64 { return HeaderSize + int64(idx)*8 }

// Lookup returns the key-record offset stored at key's slot, or 0 if empty.
func (f *File) Lookup(key []byte) (int64, error) {
	v, err := f.readU64At(slotPos(f.Slot(key)))
	return int64(v), err
}

// Set writes keyOffset into key's slot, updating the header's occupancy
// counter as the slot transitions between empty and occupied (mirroring the
// convention that a zero offset means empty).
func (f *File) Set(key []byte, keyOffset int64) error {
	idx := f.Slot(key)
	prev, err := f.readU64At(slotPos(idx))
	if err != nil {
		return err
	}
	if err := f.writeU64At(slotPos(idx), uint64(keyOffset)); err != nil {
		return err
	}
	count, err := f.Count()
	if err != nil {
		return err
	}
	switch {
	case prev == 0 && keyOffset != 0:
		count++
	case prev != 0 && keyOffset == 0:
		count--
	default:
		return nil
	}
	return f.writeU64At(countPos, count)
}

// Clear empties key's slot.
func (f *File) Clear(key []byte) error {
	return f.Set(key, 0)
}
