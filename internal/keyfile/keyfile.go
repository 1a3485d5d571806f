// Package keyfile implements the on-disk key record store ("<name>.key").
// Each record holds a piece size, the key's length and bytes, and the
// offset of its associated value record; free records are identified by a
// zero key-length field, per internal/varfile's generic piece allocator.
package keyfile

import (
	"path/filepath"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/varfile"
	"github.com/iamNilotpal/filekv/internal/varint"
	"github.com/iamNilotpal/filekv/pkg/errors"
	"github.com/iamNilotpal/filekv/pkg/keytype"
)

// HeaderSize is the fixed key-file header length in bytes.
const HeaderSize = 192

const freeListBase = 32 // REC_SIZE_FREE_OFFSET_1ST

// sizeClasses is the shared key/value piece size-class table; the last
// entry is the large-bucket threshold.
var sizeClasses = []uint32{16, 24, 32, 48, 64, 80, 96, 112, 128, 256, 384, 512, 640, 768, 896, 1024}

var signature1 = [8]byte{'s', 'i', 'a', 'm', 'd', 'b', 'K', 0}

func freeListOffsets() []int64 {
	offsets := make([]int64, len(sizeClasses))
	for i := range offsets {
		offsets[i] = freeListBase + int64(i)*8
	}
	return offsets
}

// Record is a decoded key record.
type Record struct {
	Offset      int64
	PieceSize   uint32
	Key         []byte
	ValueOffset int64
}

// File is the buffered, piece-allocated key record store.
type File struct {
	*varfile.File
	kind keytype.Kind
}

// Open opens or creates the key file at path for the given key kind.
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
			nil, errors.ErrorCodeFormatCorrupted, "keyfile: bad header signature",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithDetail("signature", sig1)
	}
	if err := f.ReadExact(sig2[:]); err != nil {
		return err
	}
	want := keytype.Signature(f.kind)
	if sig2 != want {
		return errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "keyfile: key-type signature mismatch",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).
			WithDetail("signature", sig2).WithDetail("expected", want)
	}
	return nil
}

func payloadLen(key []byte, valueOffset int64) int {
	return varint.EncodedLen(uint64(len(key))) + len(key) + varint.EncodedLen(uint64(valueOffset/8))
}

func (f *File) writeFields(pieceSize uint32, key []byte, valueOffset int64) error {
	if err := f.WriteVarInt(uint64(pieceSize)); err != nil {
		return err
	}
	if err := f.WriteVarInt(uint64(len(key))); err != nil {
		return err
	}
	if err := f.WriteAll(key); err != nil {
		return err
	}
	return f.WriteOffset(valueOffset)
}

// Add allocates a piece (from the free list or by extending the file) and
// writes a new key record, returning its offset and the piece size used.
// On write failure after extending the file, the file is truncated back to
// its pre-allocation length.
func (f *File) Add(key []byte, valueOffset int64) (int64, uint32, error) {
	pieceSize, _ := f.SizeForPayload(payloadLen(key, valueOffset))
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
	if err := f.writeFields(pieceSize, key, valueOffset); err != nil {
		if extending {
			if rerr := f.SetLen(preLen); rerr != nil {
				return 0, 0, errors.NewStorageError(
					err, errors.ErrorCodeCapacityExceeded, "keyfile: key write failed and file truncation rollback also failed",
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
					err, errors.ErrorCodeCapacityExceeded, "keyfile: zero-fill failed and file truncation rollback also failed",
				).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithOffset(int(offset)).
					WithDetail("rollback_error", rerr.Error())
			}
			return 0, 0, err
		}
	}
	return offset, pieceSize, nil
}

// Read decodes the full record at offset.
func (f *File) Read(offset int64) (Record, error) {
	if _, err := f.SeekFromStart(offset); err != nil {
		return Record{}, err
	}
	pieceSize, err := f.ReadVarInt()
	if err != nil {
		return Record{}, err
	}
	keyLen, err := f.ReadVarInt()
	if err != nil {
		return Record{}, err
	}
	key := make([]byte, keyLen)
	if err := f.ReadExact(key); err != nil {
		return Record{}, err
	}
	valueOffset, err := f.ReadOffset()
	if err != nil {
		return Record{}, err
	}
	return Record{Offset: offset, PieceSize: uint32(pieceSize), Key: key, ValueOffset: valueOffset}, nil
}

// ReadOnlyKey decodes just the key bytes, skipping the value offset field.
func (f *File) ReadOnlyKey(offset int64) ([]byte, error) {
	if _, err := f.SeekFromStart(offset); err != nil {
		return nil, err
	}
	if _, err := f.ReadVarInt(); err != nil { // piece_size
		return nil, err
	}
	keyLen, err := f.ReadVarInt()
	if err != nil {
		return nil, err
	}
	key := make([]byte, keyLen)
	if err := f.ReadExact(key); err != nil {
		return nil, err
	}
	return key, nil
}

// ReadOnlyValueOffset decodes just the value offset, skipping the key bytes.
func (f *File) ReadOnlyValueOffset(offset int64) (int64, error) {
	if _, err := f.SeekFromStart(offset); err != nil {
		return 0, err
	}
	if _, err := f.ReadVarInt(); err != nil { // piece_size
		return 0, err
	}
	keyLen, err := f.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if _, err := f.SeekFromStart(f.Pos() + int64(keyLen)); err != nil {
		return 0, err
	}
	return f.ReadOffset()
}

// Update rewrites the record at offset with a new value offset (and,
// rarely, a new key — used only by relocation). If the record still fits
// its existing piece size it is overwritten in place; otherwise the old
// piece is freed and a new one allocated, and the new offset/piece size are
// returned.
func (f *File) Update(rec Record, newValueOffset int64) (int64, uint32, error) {
	needed, _ := f.SizeForPayload(payloadLen(rec.Key, newValueOffset))
	if needed <= rec.PieceSize {
		if _, err := f.SeekFromStart(rec.Offset); err != nil {
			return 0, 0, err
		}
		if err := f.writeFields(rec.PieceSize, rec.Key, newValueOffset); err != nil {
			return 0, 0, err
		}
		return rec.Offset, rec.PieceSize, nil
	}
	if err := f.PushFreePieceList(rec.Offset, rec.PieceSize); err != nil {
		return 0, 0, err
	}
	return f.Add(rec.Key, newValueOffset)
}

// Delete frees the record's piece and returns the reclaimed size.
func (f *File) Delete(offset int64, pieceSize uint32) (uint32, error) {
	if err := f.PushFreePieceList(offset, pieceSize); err != nil {
		return 0, err
	}
	return pieceSize, nil
}
