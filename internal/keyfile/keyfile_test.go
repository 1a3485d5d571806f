package keyfile

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/filekv/pkg/keytype"
)

func TestAddReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.key"), keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, _, err := f.Add([]byte("apple"), 4096)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec.Key, []byte("apple")) || rec.ValueOffset != 4096 {
		t.Fatalf("got %+v", rec)
	}
}

func TestReadOnlyKeyAndValueOffsetMatchFullRead(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.key"), keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, _, err := f.Add([]byte("banana"), 128)
	if err != nil {
		t.Fatal(err)
	}

	key, err := f.ReadOnlyKey(offset)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, []byte("banana")) {
		t.Fatalf("got %q", key)
	}

	vo, err := f.ReadOnlyValueOffset(offset)
	if err != nil {
		t.Fatal(err)
	}
	if vo != 128 {
		t.Fatalf("got %d, want 128", vo)
	}
}

func TestUpdateValueOffsetInPlace(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.key"), keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("apple"), 8)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}

	newOffset, newPieceSize, err := f.Update(rec, 16)
	if err != nil {
		t.Fatal(err)
	}
	if newOffset != offset || newPieceSize != pieceSize {
		t.Fatalf("expected in-place update, got offset %d (was %d)", newOffset, offset)
	}
	got, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}
	if got.ValueOffset != 16 {
		t.Fatalf("got %d, want 16", got.ValueOffset)
	}
}

func TestDeleteFreesAndAddReuses(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.key"), keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("apple"), 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Delete(offset, pieceSize); err != nil {
		t.Fatal(err)
	}

	newOffset, newPieceSize, err := f.Add([]byte("xyzzy"), 16)
	if err != nil {
		t.Fatal(err)
	}
	if newOffset != offset || newPieceSize != pieceSize {
		t.Fatalf("expected the freed piece to be reused, got offset %d", newOffset)
	}
}

func TestOpenRejectsKeyTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.key")
	f, err := Open(path, keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, keytype.Bytes); err == nil {
		t.Fatal("expected an error reopening a string-keyed file as bytes-keyed")
	}
}
