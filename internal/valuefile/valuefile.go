// Package valuefile implements the on-disk value record store
// ("<name>.val"). Each record holds a piece size, the value's length and
// bytes; free records are identified by a zero value-length field.
package valuefile

import (
	"path/filepath"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/varfile"
	"github.com/iamNilotpal/filekv/internal/varint"
	"github.com/iamNilotpal/filekv/pkg/errors"
)

// HeaderSize is the fixed value-file header length in bytes.
const HeaderSize = 192

const freeListBase = 32

var sizeClasses = []uint32{16, 24, 32, 48, 64, 80, 96, 112, 128, 256, 384, 512, 640, 768, 896, 1024}

var signature1 = [8]byte{'s', 'i', 'a', 'm', 'd', 'b', 'V', 0}

func freeListOffsets() []int64 {
	offsets := make([]int64, len(sizeClasses))
	for i := range offsets {
		offsets[i] = freeListBase + int64(i)*8
	}
	return offsets
}

// Record is a decoded value record.
type Record struct {
	Offset    int64
	PieceSize uint32
	Value     []byte
}

// File is the buffered, piece-allocated value record store.
type File struct {
	*varfile.File
}

// Open opens or creates the value file at path. Unlike the key file, the
// value file carries no per-key-type signature: values are opaque bytes
// regardless of the map's key type.
func Open(path string, opts ...chunkfile.Option) (*File, error) {
	vf, err := varfile.Open(path, sizeClasses, freeListOffsets(), opts...)
	if err != nil {
		return nil, err
	}
	f := &File{File: vf}
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
	zero := make([]byte, HeaderSize-8)
	return f.WriteAll(zero)
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
			nil, errors.ErrorCodeFormatCorrupted, "valuefile: bad header signature",
		).WithPath(f.Name()).WithFileName(filepath.Base(f.Name())).WithDetail("signature", sig1)
	}
	return nil
}

func payloadLen(value []byte) int {
	return varint.EncodedLen(uint64(len(value))) + len(value)
}

func (f *File) writeFields(pieceSize uint32, value []byte) error {
	if err := f.WriteVarInt(uint64(pieceSize)); err != nil {
		return err
	}
	if err := f.WriteVarInt(uint64(len(value))); err != nil {
		return err
	}
	return f.WriteAll(value)
}

// Add allocates a piece and writes a new value record, returning its
// offset and piece size.
func (f *File) Add(value []byte) (int64, uint32, error) {
	pieceSize, _ := f.SizeForPayload(payloadLen(value))
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
	if err := f.writeFields(pieceSize, value); err != nil {
		if extending {
			if rerr := f.SetLen(preLen); rerr != nil {
				return 0, 0, errors.NewStorageError(
					err, errors.ErrorCodeCapacityExceeded, "valuefile: value write failed and file truncation rollback also failed",
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
					err, errors.ErrorCodeCapacityExceeded, "valuefile: zero-fill failed and file truncation rollback also failed",
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
	valueLen, err := f.ReadVarInt()
	if err != nil {
		return Record{}, err
	}
	value := make([]byte, valueLen)
	if err := f.ReadExact(value); err != nil {
		return Record{}, err
	}
	return Record{Offset: offset, PieceSize: uint32(pieceSize), Value: value}, nil
}

// Update rewrites the record at offset with a new value. If it still fits
// the existing piece size, it is overwritten in place (the value file's
// free-list histogram is unchanged); otherwise the old piece is freed and
// a new one is allocated.
func (f *File) Update(rec Record, newValue []byte) (int64, uint32, error) {
	needed, _ := f.SizeForPayload(payloadLen(newValue))
	if needed <= rec.PieceSize {
		if _, err := f.SeekFromStart(rec.Offset); err != nil {
			return 0, 0, err
		}
		if err := f.writeFields(rec.PieceSize, newValue); err != nil {
			return 0, 0, err
		}
		return rec.Offset, rec.PieceSize, nil
	}
	if err := f.PushFreePieceList(rec.Offset, rec.PieceSize); err != nil {
		return 0, 0, err
	}
	return f.Add(newValue)
}

// Delete frees the record's piece and returns the reclaimed size.
func (f *File) Delete(offset int64, pieceSize uint32) (uint32, error) {
	if err := f.PushFreePieceList(offset, pieceSize); err != nil {
		return 0, err
	}
	return pieceSize, nil
}
