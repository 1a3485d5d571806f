// Package idxfile implements the on-disk B-tree node store ("<name>.idx").
// It owns node serialization, the header and its free-list heads, and the
// structural diagnostics (balance, density, ordering) used by tests and the
// introspection CLI. The actual search/insert/delete algorithms live in
// internal/mapdb, since they must compare keys by reading through the key
// file; this package only ever reasons about node shape and offsets.
package idxfile

import (
	"path/filepath"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/varfile"
	"github.com/iamNilotpal/filekv/internal/varint"
	"github.com/iamNilotpal/filekv/pkg/errors"
	"github.com/iamNilotpal/filekv/pkg/keytype"
)

// HeaderSize is the fixed index-file header length in bytes.
const HeaderSize = 128

const topNodeOffsetPos = 16
const freeListBase = 24

// NodeSlotsMax and NodeSlotsMaxHalf are the B-tree fan-out parameters for
// the VarInt offset-encoding build.
const (
	NodeSlotsMax     = 13
	NodeSlotsMaxHalf = (NodeSlotsMax + 1) / 2
)

// sizeClasses is the node size-class table; the last entry is the
// large-bucket threshold.
var sizeClasses = []uint32{32, 72, 104, 144, 176, 216, 232, 256}

var signature1 = [8]byte{'s', 'i', 'a', 'm', 'd', 'b', '1', 0}

func freeListOffsets() []int64 {
	offsets := make([]int64, len(sizeClasses))
	for i := range offsets {
		offsets[i] = freeListBase + int64(i)*8
	}
	return offsets
}

// Node is a decoded B-tree node: keys_count key-record offsets and
// keys_count+1 child-node offsets. A leaf is recognised by Downs[0] == 0.
type Node struct {
	Offset    int64
	PieceSize uint32
	Keys      []int64
	Downs     []int64
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Downs) == 0 || n.Downs[0] == 0 }

// File is the buffered, piece-allocated B-tree node store.
type File struct {
	*varfile.File
	kind keytype.Kind
}

// Open opens or creates the index file at path. A freshly created file gets
// a single empty root node placed right after the header.
func Open(path string, kind keytype.Kind, opts ...chunkfile.Option) (*File, error) {
	vf, err := varfile.Open(path, sizeClasses, freeListOffsets(), opts...)
	if err != nil {
		return nil, err
	}
	f := &File{File: vf, kind: kind}
	if vf.Len() == 0 {
		if err := f.writeInitHeader(); err != nil {
			return nil, err
		}
		root := &Node{Keys: nil, Downs: []int64{0}}
		offset, _, err := f.AllocateNode(root)
		if err != nil {
			return nil, err
		}
		if err := f.WriteTopNodeOffset(offset); err != nil {
			return nil, err
		}
	} else if err := f.checkHeader(); err != nil {
		return nil, err
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
	if err := f.WriteAll(keytype.Signature(f.kind)[:]); err != nil {
		return err
	}
	zero := make([]byte, HeaderSize-16)
	return f.WriteAll(zero)
}

func (f *File) checkHeader() error {
	if _, err := f.SeekFromStart(0); err != nil {
		return err
	}
	var sig1, sig2 [8]byte
	if err := f.ReadExact(sig1[:]); err != nil {
		return err
	}
	if sig1 != signature1 {
		return errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "idxfile: bad header signature",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithDetail("signature", sig1)
	}
	if err := f.ReadExact(sig2[:]); err != nil {
		return err
	}
	want := keytype.Signature(f.kind)
	if sig2 != want {
		return errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "idxfile: key-type signature mismatch",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).
			WithDetail("signature", sig2).WithDetail("expected", want)
	}
	return nil
}

// ReadTopNodeOffset reads the root node's offset from the header.
func (f *File) ReadTopNodeOffset() (int64, error) {
	if _, err := f.SeekFromStart(topNodeOffsetPos); err != nil {
		return 0, err
	}
	v, err := f.ReadU64LE()
	return int64(v), err
}

// WriteTopNodeOffset updates the root node's offset in the header.
func (f *File) WriteTopNodeOffset(offset int64) error {
	if _, err := f.SeekFromStart(topNodeOffsetPos); err != nil {
		return err
	}
	return f.WriteU64LE(uint64(offset))
}

func payloadLen(n *Node) int {
	total := varint.EncodedLen(uint64(len(n.Keys)))
	for _, k := range n.Keys {
		total += varint.EncodedLen(uint64(k / 8))
	}
	for _, d := range n.Downs {
		total += varint.EncodedLen(uint64(d / 8))
	}
	return total
}

func (f *File) writeNodeFields(pieceSize uint32, n *Node) error {
	if err := f.WriteVarInt(uint64(pieceSize)); err != nil {
		return err
	}
	if err := f.WriteVarInt(uint64(len(n.Keys))); err != nil {
		return err
	}
	for _, k := range n.Keys {
		if err := f.WriteOffset(k); err != nil {
			return err
		}
	}
	for _, d := range n.Downs {
		if err := f.WriteOffset(d); err != nil {
			return err
		}
	}
	return nil
}

// AllocateNode writes n as a brand-new node (from the free list or by
// extending the file) and returns its offset and the piece size used.
func (f *File) AllocateNode(n *Node) (int64, uint32, error) {
	pieceSize, _ := f.SizeForPayload(payloadLen(n))
	offset, err := f.PopFreePieceList(pieceSize)
	if err != nil {
		return 0, 0, err
	}
	extending := offset == 0
	preLen := f.Len()
	if extending {
		offset = preLen
	}
	if _, err := f.SeekFromStart(offset); err != nil {
		return 0, 0, err
	}
	if err := f.writeNodeFields(pieceSize, n); err != nil {
		if extending {
			if rerr := f.SetLen(preLen); rerr != nil {
				return 0, 0, errors.NewStorageError(
					err, errors.ErrorCodeCapacityExceeded, "idxfile: node write failed and file truncation rollback also failed",
				).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithOffset(int(offset)).
					WithDetail("rollback_error", rerr.Error())
			}
		}
		return 0, 0, err
	}
	if extending {
		if err := f.WriteZeroTo(offset + int64(pieceSize)); err != nil {
			if rerr := f.SetLen(preLen); rerr != nil {
				return 0, 0, errors.NewStorageError(
					err, errors.ErrorCodeCapacityExceeded, "idxfile: zero-fill failed and file truncation rollback also failed",
				).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithOffset(int(offset)).
					WithDetail("rollback_error", rerr.Error())
			}
			return 0, 0, err
		}
	}
	n.Offset = offset
	n.PieceSize = pieceSize
	return offset, pieceSize, nil
}

// ReadNode decodes the node at offset.
func (f *File) ReadNode(offset int64) (*Node, error) {
	if _, err := f.SeekFromStart(offset); err != nil {
		return nil, err
	}
	pieceSize, err := f.ReadVarInt()
	if err != nil {
		return nil, err
	}
	count, err := f.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if count > NodeSlotsMax {
		return nil, errors.NewIndexError(
			nil, errors.ErrorCodeIndexCorrupted, "idxfile: node slot count exceeds capacity",
		).WithOffset(offset).WithOperation("ReadNode").
			WithDetail("count", count).WithDetail("max", NodeSlotsMax)
	}
	keys := make([]int64, count)
	for i := range keys {
		if keys[i], err = f.ReadOffset(); err != nil {
			return nil, err
		}
	}
	downs := make([]int64, count+1)
	for i := range downs {
		if downs[i], err = f.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return &Node{Offset: offset, PieceSize: uint32(pieceSize), Keys: keys, Downs: downs}, nil
}

// WriteNode rewrites the node at its existing offset if its new encoding
// still fits the existing piece size (the write-back policy required by
// every B-tree mutation); otherwise it frees the old piece and allocates a
// new one, returning the (possibly new) offset and piece size, and the
// caller is responsible for repointing whatever referenced the old offset.
func (f *File) WriteNode(n *Node) (int64, uint32, error) {
	needed, _ := f.SizeForPayload(payloadLen(n))
	if needed <= n.PieceSize {
		if _, err := f.SeekFromStart(n.Offset); err != nil {
			return 0, 0, err
		}
		if err := f.writeNodeFields(n.PieceSize, n); err != nil {
			return 0, 0, err
		}
		return n.Offset, n.PieceSize, nil
	}
	if err := f.PushFreePieceList(n.Offset, n.PieceSize); err != nil {
		return 0, 0, err
	}
	return f.AllocateNode(n)
}

// DeleteNode frees the node's piece.
func (f *File) DeleteNode(offset int64, pieceSize uint32) error {
	return f.PushFreePieceList(offset, pieceSize)
}
