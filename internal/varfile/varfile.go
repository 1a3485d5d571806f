// Package varfile layers VarInt-aware field I/O and a size-class piece
// allocator on top of internal/chunkfile. It is the shared foundation for
// the key, value and index files: each of those embeds a *varfile.File
// configured with its own size-class table and header layout. The hash-side
// file has fixed-width slots and embeds *chunkfile.File directly.
package varfile

import (
	"fmt"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/varint"
)

// File wraps a buffered chunkfile.File with VarInt field codecs and a
// size-class free-list allocator ("piece manager"). Offsets are always
// 8-byte aligned, so node/record offsets are stored as a VarInt of
// offset/8, halving the typical encoded width.
type File struct {
	*chunkfile.File

	// sizeClasses is ascending; every entry except the last is an exact
	// fit class, the last entry is the large-bucket threshold.
	sizeClasses []uint32
	// freeListOffsets[i] is the header byte offset of the free-list head
	// for sizeClasses[i]; same length as sizeClasses.
	freeListOffsets []int64
}

// Open opens path as a buffered chunkfile and wraps it for VarInt/piece
// access using the given size-class table and matching free-list header
// offsets (same length, ascending order, last entry is the large bucket).
func Open(path string, sizeClasses []uint32, freeListOffsets []int64, opts ...chunkfile.Option) (*File, error) {
	if len(sizeClasses) != len(freeListOffsets) {
		return nil, fmt.Errorf("varfile: size classes (%d) and free-list offsets (%d) must have the same length", len(sizeClasses), len(freeListOffsets))
	}
	cf, err := chunkfile.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return &File{File: cf, sizeClasses: sizeClasses, freeListOffsets: freeListOffsets}, nil
}

// ReadVarInt decodes a VarInt at the current cursor, advancing it.
func (f *File) ReadVarInt() (uint64, error) {
	var first [1]byte
	if err := f.ReadExactSmall(first[:]); err != nil {
		return 0, err
	}
	n := varint.DecodedLen(first[0])
	if n == 1 {
		v, _, err := varint.Decode(first[:])
		return v, err
	}
	buf := make([]byte, n)
	buf[0] = first[0]
	if err := f.ReadExactSmall(buf[1:]); err != nil {
		return 0, err
	}
	v, _, err := varint.Decode(buf)
	return v, err
}

// WriteVarInt encodes v as a VarInt at the current cursor, advancing it.
func (f *File) WriteVarInt(v uint64) error {
	enc := varint.Encode(nil, v)
	return f.WriteAllSmall(enc)
}

// ReadOffset decodes an 8-byte-aligned offset stored as VarInt(offset/8).
// A decoded value of 0 represents "no offset" (nil).
func (f *File) ReadOffset() (int64, error) {
	v, err := f.ReadVarInt()
	if err != nil {
		return 0, err
	}
	return int64(v) * 8, nil
}

// WriteOffset encodes an 8-byte-aligned offset as VarInt(offset/8).
func (f *File) WriteOffset(offset int64) error {
	if offset%8 != 0 {
		return fmt.Errorf("varfile: offset %d is not 8-byte aligned", offset)
	}
	return f.WriteVarInt(uint64(offset / 8))
}

// ReadU64LE reads a fixed 8-byte little-endian integer (used for header
// fields that are not VarInt-encoded, such as signatures-adjacent counters).
func (f *File) ReadU64LE() (uint64, error) {
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

// WriteU64LE writes a fixed 8-byte little-endian integer.
func (f *File) WriteU64LE(v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return f.WriteAllSmall(buf[:])
}
