package keytype

import "testing"

func TestSignatureRoundTrip(t *testing.T) {
	for _, k := range []Kind{Bytes, String, Uint64} {
		sig := Signature(k)
		got, err := KindFromSignature(sig)
		if err != nil {
			t.Fatal(err)
		}
		if got != k {
			t.Fatalf("KindFromSignature(Signature(%v)) = %v", k, got)
		}
	}
}

func TestUint64OrderingMatchesNumericOrder(t *testing.T) {
	a := Uint64Key(5)
	b := Uint64Key(300)
	if Compare(a, b) >= 0 {
		t.Fatal("expected 5 < 300 in byte order")
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	orig := BytesKey("hello")
	k, err := FromBytes(Bytes, orig.AsBytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(k.AsBytes()) != "hello" {
		t.Fatalf("got %q", k.AsBytes())
	}
}

func TestFromBytesUint64RejectsWrongLength(t *testing.T) {
	if _, err := FromBytes(Uint64, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short uint64 encoding")
	}
}
