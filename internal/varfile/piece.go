package varfile

import "sort"

// Roundup returns the smallest size class ≥ n among every class but the
// last; for larger n it returns the smallest multiple of 128 bytes strictly
// greater than n (so Roundup(256) is 384).
func (f *File) Roundup(n uint32) uint32 {
	classes := f.sizeClasses[:len(f.sizeClasses)-1]
	for _, sz := range classes {
		if n <= sz {
			return sz
		}
	}
	return ((n + 128) / 128) * 128
}

// IsLargePieceSize reports whether pieceSize falls in the large bucket.
func (f *File) IsLargePieceSize(pieceSize uint32) bool {
	return pieceSize >= f.sizeClasses[len(f.sizeClasses)-1]
}

// CanDown reports whether a piece currently of pieceSize could be replaced
// by one drawn from a strictly smaller class that still satisfies needSize.
func (f *File) CanDown(pieceSize, needSize uint32) bool {
	classes := f.sizeClasses[:len(f.sizeClasses)-1]
	idx := sort.Search(len(classes), func(i int) bool { return classes[i] >= needSize })
	if idx < len(classes) {
		return classes[idx] < pieceSize
	}
	return false
}

// FreeListHeaderOffset returns the header byte offset of the free-list head
// for pieceSize's class (the large bucket's head if pieceSize exceeds every
// exact class).
func (f *File) FreeListHeaderOffset(pieceSize uint32) int64 {
	for i, sz := range f.sizeClasses {
		if sz == pieceSize {
			return f.freeListOffsets[i]
		}
	}
	return f.freeListOffsets[len(f.freeListOffsets)-1]
}

// ReadFreePieceOffsetOnHeader reads the free-list head offset for pieceSize's
// class from the header (0 means the list is empty).
func (f *File) ReadFreePieceOffsetOnHeader(pieceSize uint32) (int64, error) {
	if _, err := f.SeekFromStart(f.FreeListHeaderOffset(pieceSize)); err != nil {
		return 0, err
	}
	v, err := f.ReadU64LE()
	return int64(v), err
}

// WriteFreePieceOffsetOnHeader updates the free-list head offset for
// pieceSize's class.
func (f *File) WriteFreePieceOffsetOnHeader(pieceSize uint32, offset int64) error {
	if _, err := f.SeekFromStart(f.FreeListHeaderOffset(pieceSize)); err != nil {
		return err
	}
	return f.WriteU64LE(uint64(offset))
}

// CountFreePieceList walks the free list for pieceSize's class and returns
// its length. Diagnostic only.
func (f *File) CountFreePieceList(pieceSize uint32) (int64, error) {
	var count int64
	curr, err := f.ReadFreePieceOffsetOnHeader(pieceSize)
	if err != nil {
		return 0, err
	}
	for curr != 0 {
		count++
		_, next, err := f.ReadFreePieceSizeNext(curr)
		if err != nil {
			return 0, err
		}
		curr = next
	}
	return count, nil
}

// ReadFreePieceSizeNext reads the (size, next) pair recorded at the head of
// a free piece.
func (f *File) ReadFreePieceSizeNext(offset int64) (uint32, int64, error) {
	if _, err := f.SeekFromStart(offset); err != nil {
		return 0, 0, err
	}
	size, err := f.ReadVarInt()
	if err != nil {
		return 0, 0, err
	}
	if _, err := f.ReadVarInt(); err != nil { // free marker: always 0
		return 0, 0, err
	}
	next, err := f.ReadOffset()
	if err != nil {
		return 0, 0, err
	}
	return uint32(size), next, nil
}

// PushFreePieceList returns a piece to its class's free list: the body is
// zeroed, the free marker (a zero key-length/keys-count field) is written,
// and the list head is advanced to point at it.
func (f *File) PushFreePieceList(offset int64, size uint32) error {
	if offset == 0 {
		return nil
	}
	free1st, err := f.ReadFreePieceOffsetOnHeader(size)
	if err != nil {
		return err
	}
	start, err := f.SeekFromStart(offset)
	if err != nil {
		return err
	}
	if err := f.WriteVarInt(uint64(size)); err != nil {
		return err
	}
	if err := f.WriteVarInt(0); err != nil { // free marker
		return err
	}
	if err := f.WriteOffset(free1st); err != nil {
		return err
	}
	if err := f.WriteZeroTo(start + int64(size)); err != nil {
		return err
	}
	return f.WriteFreePieceOffsetOnHeader(size, offset)
}

// PopFreePieceList removes and returns a piece from the free list able to
// satisfy newSize, or 0 if none is available. Exact classes are served from
// the head; the large bucket is served first-fit.
func (f *File) PopFreePieceList(newSize uint32) (int64, error) {
	free1st, err := f.ReadFreePieceOffsetOnHeader(newSize)
	if err != nil {
		return 0, err
	}
	if !f.IsLargePieceSize(newSize) {
		if free1st != 0 {
			_, next, err := f.ReadFreePieceSizeNext(free1st)
			if err != nil {
				return 0, err
			}
			if err := f.WriteFreePieceOffsetOnHeader(newSize, next); err != nil {
				return 0, err
			}
		}
		return free1st, nil
	}
	return f.popFreePieceListLarge(newSize, free1st)
}

func (f *File) popFreePieceListLarge(newSize uint32, free1st int64) (int64, error) {
	var prev int64
	curr := free1st
	for curr != 0 {
		size, next, err := f.ReadFreePieceSizeNext(curr)
		if err != nil {
			return 0, err
		}
		if newSize <= size {
			if prev != 0 {
				if _, err := f.SeekFromStart(prev); err != nil {
					return 0, err
				}
				if _, err := f.ReadVarInt(); err != nil { // piece_size
					return 0, err
				}
				if _, err := f.ReadVarInt(); err != nil { // free marker
					return 0, err
				}
				if err := f.WriteOffset(next); err != nil {
					return 0, err
				}
			} else {
				if err := f.WriteFreePieceOffsetOnHeader(newSize, next); err != nil {
					return 0, err
				}
			}
			return curr, nil
		}
		prev = curr
		curr = next
	}
	return 0, nil
}
