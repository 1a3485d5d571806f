// Package keytype implements the closed set of key types a map can be
// opened with: raw bytes, UTF-8 strings, and big-endian-encoded u64
// integers. Each shares one capability surface (an 8-byte file-format
// signature, an on-disk byte encoding, lexicographic comparison, and a
// stable hash) instead of being handled through type-specific branches
// scattered across the storage layer.
package keytype

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies which of the closed set of key types a Key value is.
type Kind uint8

const (
	Bytes Kind = iota
	String
	Uint64
)

func (k Kind) String() string {
	switch k {
	case Bytes:
		return "bytes"
	case String:
		return "string"
	case Uint64:
		return "uint64"
	default:
		return "unknown"
	}
}

// signatures are the exact 8-byte, NUL-padded per-key-type signatures that
// follow the file-kind signature in every header.
var signatures = map[Kind][8]byte{
	Bytes:  {'b', 'y', 't', 'e', 's', 0, 0, 0},
	String: {'s', 't', 'r', 'i', 'n', 'g', 0, 0},
	Uint64: {'u', 'i', 'n', 't', '6', '4', 0, 0},
}

// Signature returns the 8-byte header signature for k.
func Signature(k Kind) [8]byte { return signatures[k] }

// KindFromSignature maps a header signature back to its Kind, failing if it
// matches none of the closed set.
func KindFromSignature(sig [8]byte) (Kind, error) {
	for k, s := range signatures {
		if s == sig {
			return k, nil
		}
	}
	return 0, fmt.Errorf("keytype: unrecognised key-type signature %q", sig)
}

// Key is the capability shared by every key variant: a byte encoding
// suitable for on-disk storage and lexicographic comparison, plus a stable
// hash for the optional hash side file.
type Key interface {
	Kind() Kind
	// AsBytes returns the on-disk byte encoding. For Bytes it is the raw
	// key; for String it is the UTF-8 encoding; for Uint64 it is 8
	// big-endian bytes so byte-lexicographic order matches numeric order.
	AsBytes() []byte
}

// Compare returns -1, 0 or 1 comparing a and b's on-disk encodings
// lexicographically. Keys of different kinds compare by their raw bytes;
// callers are expected to only compare keys drawn from the same map.
func Compare(a, b Key) int {
	ab, bb := a.AsBytes(), b.AsBytes()
	n := len(ab)
	if len(bb) < n {
		n = len(bb)
	}
	for i := 0; i < n; i++ {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ab) < len(bb):
		return -1
	case len(ab) > len(bb):
		return 1
	default:
		return 0
	}
}

// Hash returns a stable hash of the key's on-disk encoding, used to place
// the key in the optional hash side file.
func Hash(k Key) uint64 {
	return xxhash.Sum64(k.AsBytes())
}

// BytesKey is a key type carrying an arbitrary byte slice, compared and
// stored as given.
type BytesKey []byte

func (k BytesKey) Kind() Kind      { return Bytes }
func (k BytesKey) AsBytes() []byte { return []byte(k) }

// StringKey is a key type carrying a UTF-8 string.
type StringKey string

func (k StringKey) Kind() Kind      { return String }
func (k StringKey) AsBytes() []byte { return []byte(k) }

// Uint64Key is a key type carrying an unsigned 64-bit integer, stored as
// 8 big-endian bytes so that byte-lexicographic order equals numeric order.
type Uint64Key uint64

func (k Uint64Key) Kind() Kind { return Uint64 }
func (k Uint64Key) AsBytes() []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(k))
	return buf[:]
}

// FromBytes decodes raw on-disk bytes into the Key variant identified by
// kind.
func FromBytes(kind Kind, raw []byte) (Key, error) {
	switch kind {
	case Bytes:
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return BytesKey(cp), nil
	case String:
		return StringKey(string(raw)), nil
	case Uint64:
		if len(raw) != 8 {
			return nil, fmt.Errorf("keytype: uint64 key must be 8 bytes, got %d", len(raw))
		}
		return Uint64Key(binary.BigEndian.Uint64(raw)), nil
	default:
		return nil, fmt.Errorf("keytype: unknown kind %d", kind)
	}
}
