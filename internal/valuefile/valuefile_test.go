package valuefile

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestAddReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.val"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if pieceSize == 0 {
		t.Fatal("expected a non-zero piece size")
	}

	rec, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec.Value, []byte("hello world")) {
		t.Fatalf("got %q", rec.Value)
	}
}

func TestUpdateInPlaceWhenItFits(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.val"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("short"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}

	newOffset, newPieceSize, err := f.Update(rec, []byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	if newOffset != offset || newPieceSize != pieceSize {
		t.Fatalf("expected in-place update, got offset %d (was %d), size %d (was %d)",
			newOffset, offset, newPieceSize, pieceSize)
	}

	got, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Value) != "other" {
		t.Fatalf("got %q, want %q", got.Value, "other")
	}
}

func TestUpdateRelocatesWhenValueGrowsPastSizeClass(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.val"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := f.Read(offset)
	if err != nil {
		t.Fatal(err)
	}

	big := bytes.Repeat([]byte("z"), 2000)
	newOffset, newPieceSize, err := f.Update(rec, big)
	if err != nil {
		t.Fatal(err)
	}
	if newPieceSize <= pieceSize {
		t.Fatalf("expected a larger piece size after growing the value, got %d (was %d)", newPieceSize, pieceSize)
	}

	got, err := f.Read(newOffset)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Value, big) {
		t.Fatal("relocated record does not hold the new value")
	}
}

func TestDeleteThenAddReusesFreedPiece(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.val"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	offset, pieceSize, err := f.Add([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Delete(offset, pieceSize); err != nil {
		t.Fatal(err)
	}

	lenBefore := f.Len()
	newOffset, newPieceSize, err := f.Add([]byte("world"))
	if err != nil {
		t.Fatal(err)
	}
	if newOffset != offset || newPieceSize != pieceSize {
		t.Fatalf("expected the freed piece to be reused, got offset %d (freed was %d)", newOffset, offset)
	}
	if f.Len() != lenBefore {
		t.Fatal("reusing a freed piece should not extend the file")
	}
}

func TestOpenRejectsBadSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.val")
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// Corrupt the signature in place.
	raw, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.SeekFromStart(0); err != nil {
		t.Fatal(err)
	}
	if err := raw.WriteAll([]byte("garbage!")); err != nil {
		t.Fatal(err)
	}
	if err := raw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected an error opening a file with a corrupted header signature")
	}
}
