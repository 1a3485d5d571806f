package keycache

import (
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/filekv/internal/keyfile"
	"github.com/iamNilotpal/filekv/pkg/keytype"
)

func openKeyFile(t *testing.T) *keyfile.File {
	t.Helper()
	dir := t.TempDir()
	f, err := keyfile.Open(filepath.Join(dir, "t.key"), keytype.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestGetReadsThroughOnMiss(t *testing.T) {
	kf := openKeyFile(t)
	offset, _, err := kf.Add([]byte("apple"), 800)
	if err != nil {
		t.Fatal(err)
	}

	kc := New(kf, 4)
	rec, err := kc.Get(offset)
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.Key) != "apple" || rec.ValueOffset != 800 {
		t.Fatalf("got %+v", rec)
	}
}

func TestGetServesFromCacheOnHit(t *testing.T) {
	kf := openKeyFile(t)
	offset, _, err := kf.Add([]byte("apple"), 800)
	if err != nil {
		t.Fatal(err)
	}

	kc := New(kf, 4)
	if _, err := kc.Get(offset); err != nil {
		t.Fatal(err)
	}

	// Invalidate the underlying file without telling the cache, then confirm
	// the cache still serves the stale-but-cached copy (proves the second
	// Get didn't re-read the file).
	rec, _ := kf.Read(offset)
	if _, _, err := kf.Update(rec, 900); err != nil {
		t.Fatal(err)
	}

	cached, err := kc.Get(offset)
	if err != nil {
		t.Fatal(err)
	}
	if cached.ValueOffset != 800 {
		t.Fatalf("got %d, want the stale cached value 800", cached.ValueOffset)
	}
}

func TestInvalidateForcesReReadFromFile(t *testing.T) {
	kf := openKeyFile(t)
	offset, _, err := kf.Add([]byte("apple"), 800)
	if err != nil {
		t.Fatal(err)
	}

	kc := New(kf, 4)
	if _, err := kc.Get(offset); err != nil {
		t.Fatal(err)
	}

	rec, _ := kf.Read(offset)
	newOffset, _, err := kf.Update(rec, 900)
	if err != nil {
		t.Fatal(err)
	}
	kc.Invalidate(offset)

	got, err := kc.Get(newOffset)
	if err != nil {
		t.Fatal(err)
	}
	if got.ValueOffset != 900 {
		t.Fatalf("got %d, want 900", got.ValueOffset)
	}
}
