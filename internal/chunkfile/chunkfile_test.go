package chunkfile

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.dat"), WithChunkSize(64), WithMaxChunks(2))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	f.SeekFromStart(10)
	if err := f.WriteAllSmall([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	f.SeekFromStart(10)
	buf := make([]byte, 5)
	if err := f.ReadExactSmall(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}
}

func TestSpansMultipleChunksAndEvicts(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.dat"), WithChunkSize(16), WithMaxChunks(2))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// Touch four distinct chunk-sized regions so eviction must kick in.
	for i := int64(0); i < 4; i++ {
		f.SeekFromStart(i * 16)
		if err := f.WriteAll([]byte{byte(i), byte(i), byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := int64(0); i < 4; i++ {
		f.SeekFromStart(i * 16)
		buf := make([]byte, 3)
		if err := f.ReadExact(buf); err != nil {
			t.Fatal(err)
		}
		if buf[0] != byte(i) {
			t.Fatalf("region %d: got %v", i, buf)
		}
	}
}

func TestSetLenTruncates(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.dat"), WithChunkSize(16), WithMaxChunks(4))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	f.SeekFromStart(0)
	_ = f.WriteAll(make([]byte, 64))
	if f.Len() != 64 {
		t.Fatalf("len = %d, want 64", f.Len())
	}
	if err := f.SetLen(20); err != nil {
		t.Fatal(err)
	}
	if f.Len() != 20 {
		t.Fatalf("len after truncate = %d, want 20", f.Len())
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "t.dat"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := f.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := f.Flush(); err != nil {
		t.Fatal(err)
	}
}
