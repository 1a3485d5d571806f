package varfile

import "github.com/iamNilotpal/filekv/internal/varint"

// SizeForPayload picks the piece size class for a record whose fixed/keyed
// fields occupy rawPayloadLen bytes once the leading piece_size VarInt
// field is excluded. Because the piece_size field's own encoded width can
// grow with the chosen class, this fixed-points over a few iterations
// (converging in at most 2 or 3 steps for every class table in this repo)
// rather than guessing a worst-case width up front. It also returns the
// encoded width used for the piece_size field.
func (f *File) SizeForPayload(rawPayloadLen int) (pieceSize uint32, pieceSizeFieldLen int) {
	guess := 1
	for i := 0; i < 4; i++ {
		total := rawPayloadLen + guess
		rounded := f.Roundup(uint32(total))
		next := varint.EncodedLen(uint64(rounded))
		if next == guess {
			return rounded, guess
		}
		guess = next
	}
	total := rawPayloadLen + guess
	return f.Roundup(uint32(total)), guess
}
