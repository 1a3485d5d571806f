package hashfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGarbage(path string) error {
	return os.WriteFile(path, make([]byte, HeaderSize), 0o644)
}

func TestSetLookupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.htx"), 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.Set([]byte("apple"), 800); err != nil {
		t.Fatal(err)
	}
	got, err := f.Lookup([]byte("apple"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 800 {
		t.Fatalf("got %d, want 800", got)
	}

	if got, err := f.Lookup([]byte("missing")); err != nil || got != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", got, err)
	}
}

func TestCountTracksOccupancyTransitions(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.htx"), 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.Set([]byte("a"), 8); err != nil {
		t.Fatal(err)
	}
	if err := f.Set([]byte("b"), 16); err != nil {
		t.Fatal(err)
	}
	if c, err := f.Count(); err != nil || c != 2 {
		t.Fatalf("count = %d, err = %v, want 2", c, err)
	}

	// Overwriting an occupied slot with a non-zero value doesn't change the count.
	if err := f.Set([]byte("a"), 24); err != nil {
		t.Fatal(err)
	}
	if c, err := f.Count(); err != nil || c != 2 {
		t.Fatalf("count = %d, want 2", c)
	}

	if err := f.Clear([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if c, err := f.Count(); err != nil || c != 1 {
		t.Fatalf("count = %d, want 1", c)
	}
}

func TestReopenPreservesRecordedTableSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.htx")

	f, err := Open(path, 777)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Set([]byte("k"), 40); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// Requesting a different table size on reopen is ignored; the size
	// recorded in the header wins.
	f2, err := Open(path, 999)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()

	if f2.TableSize() != 777 {
		t.Fatalf("table size = %d, want 777", f2.TableSize())
	}
	got, err := f2.Lookup([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Fatalf("got %d, want 40", got)
	}
}

func TestOpenRejectsBadSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.htx")
	if err := writeGarbage(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, 1024); err == nil {
		t.Fatal("expected an error opening a file with a bad header signature")
	}
}
