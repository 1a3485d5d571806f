// Package varint implements the self-delimiting variable-length unsigned
// integer encoding used for every offset, size and length field on disk.
//
// The length of the encoding is carried in the leading one-bits of the
// first byte: 0xxxxxxx is one byte (7 bits of payload), 10xxxxxx is two
// bytes (14 bits), and so on up to 11111110 for eight bytes (56 bits) and
// 11111111 for the full nine-byte, 64-bit form. Payload bits are the
// remaining bits of the first byte followed by the trailing bytes in
// little-endian order.
package varint

import (
	"fmt"

	"github.com/iamNilotpal/filekv/pkg/errors"
)

// MaxLen is the largest number of bytes a single VarInt can occupy.
const MaxLen = 9

// EncodedLen returns the number of bytes Encode(v) would produce.
func EncodedLen(v uint64) int {
	switch {
	case v <= 0x7F:
		return 1
	case v <= 0x3FFF:
		return 2
	case v <= 0x1FFFFF:
		return 3
	case v <= 0xFFFFFFF:
		return 4
	case v <= 0x7FFFFFFFF:
		return 5
	case v <= 0x3FFFFFFFFFF:
		return 6
	case v <= 0x1FFFFFFFFFFFF:
		return 7
	case v <= 0xFFFFFFFFFFFFFF:
		return 8
	default:
		return 9
	}
}

// Encode appends the VarInt encoding of v to dst and returns the result.
func Encode(dst []byte, v uint64) []byte {
	n := EncodedLen(v)
	switch n {
	case 1:
		return append(dst, byte(v))
	case 8:
		// 11111110 prefix, 7 payload bytes (56 bits).
		var buf [8]byte
		buf[0] = 0xFE
		for i := 0; i < 7; i++ {
			buf[1+i] = byte(v >> (8 * i))
		}
		return append(dst, buf[:]...)
	case 9:
		// 11111111 prefix, 8 payload bytes (64 bits).
		var buf [9]byte
		buf[0] = 0xFF
		for i := 0; i < 8; i++ {
			buf[1+i] = byte(v >> (8 * i))
		}
		return append(dst, buf[:]...)
	default:
		// n in [2,7]: first byte carries (8-n) payload bits in its low
		// bits and (n-1) leading one-bits marking the length; the rest
		// of v's bits spill into the following n-1 bytes, little-endian.
		buf := make([]byte, n)
		lead := byte(0xFF) << uint(9-n) // n-1 leading ones, then a zero bit.
		headerBits := uint(8 - n)
		buf[0] = lead | byte(v&((1<<headerBits)-1))
		rest := v >> headerBits
		for i := 1; i < n; i++ {
			buf[i] = byte(rest)
			rest >>= 8
		}
		return append(dst, buf...)
	}
}

// DecodedLen returns the total encoded length implied by the first byte of
// an encoding, i.e. 1 + the count of leading one-bits (capped at 9).
func DecodedLen(first byte) int {
	n := 1
	b := first
	for b&0x80 != 0 {
		n++
		b <<= 1
		if n == 9 {
			break
		}
	}
	return n
}

// Decode reads a VarInt from the front of src, returning the value and the
// number of bytes consumed. It rejects truncated input and any encoding
// that is not the minimal (canonical) form for the represented value.
func Decode(src []byte) (uint64, int, error) {
	if len(src) == 0 {
		return 0, 0, fmt.Errorf("varint: empty input")
	}
	n := DecodedLen(src[0])
	if len(src) < n {
		return 0, 0, errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "varint: truncated encoding",
		).WithDetail("need_bytes", n).WithDetail("have_bytes", len(src))
	}
	var v uint64
	switch n {
	case 1:
		v = uint64(src[0])
	case 8:
		for i := 0; i < 7; i++ {
			v |= uint64(src[1+i]) << (8 * i)
		}
	case 9:
		for i := 0; i < 8; i++ {
			v |= uint64(src[1+i]) << (8 * i)
		}
	default:
		headerBits := uint(8 - n)
		mask := byte((1 << headerBits) - 1)
		v = uint64(src[0] & mask)
		for i := 1; i < n; i++ {
			v |= uint64(src[i]) << (headerBits + 8*uint(i-1))
		}
	}
	if EncodedLen(v) != n {
		return 0, 0, errors.NewStorageError(
			nil, errors.ErrorCodeFormatCorrupted, "varint: non-canonical encoding",
		).WithDetail("value", v).WithDetail("used_bytes", n).WithDetail("minimal_bytes", EncodedLen(v))
	}
	return v, n, nil
}
