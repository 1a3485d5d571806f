package cache

import "testing"

func TestGetPutRoundTrip(t *testing.T) {
	c := New[int](4, nil)
	if err := c.Put(10, 100, false); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Get(10)
	if !ok || v != 100 {
		t.Fatalf("got (%v, %v), want (100, true)", v, ok)
	}
}

func TestGetMissing(t *testing.T) {
	c := New[int](4, nil)
	if _, ok := c.Get(1); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestPutUpdatesExistingEntryWithoutEviction(t *testing.T) {
	c := New[int](1, nil)
	if err := c.Put(1, 10, false); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(1, 20, false); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Get(1); v != 20 {
		t.Fatalf("got %d, want 20", v)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestAllClearEvictionOnFullCache(t *testing.T) {
	var flushed []int64
	c := New[int](2, func(offset int64, v int) error {
		flushed = append(flushed, offset)
		return nil
	})

	if err := c.Put(1, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(2, 2, true); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}

	// A third distinct offset on a full cache must flush every dirty entry
	// and empty the cache before admitting the newcomer.
	if err := c.Put(3, 3, false); err != nil {
		t.Fatal(err)
	}
	if len(flushed) != 2 {
		t.Fatalf("flushed %v, want 2 entries flushed", flushed)
	}
	if c.Len() != 1 {
		t.Fatalf("len after clear-and-admit = %d, want 1", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Fatal("entry 1 should have been evicted")
	}
	if v, ok := c.Get(3); !ok || v != 3 {
		t.Fatalf("got (%v, %v), want (3, true)", v, ok)
	}
}

func TestDeleteReturnsValue(t *testing.T) {
	c := New[string](4, nil)
	_ = c.Put(5, "hello", false)
	v, ok := c.Delete(5)
	if !ok || v != "hello" {
		t.Fatalf("got (%q, %v), want (\"hello\", true)", v, ok)
	}
	if _, ok := c.Get(5); ok {
		t.Fatal("entry should be gone after delete")
	}
}

func TestFlushWritesBackDirtyEntriesOnly(t *testing.T) {
	var flushed []int64
	c := New[int](8, func(offset int64, v int) error {
		flushed = append(flushed, offset)
		return nil
	})
	_ = c.Put(1, 1, true)
	_ = c.Put(2, 2, false)

	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(flushed) != 1 || flushed[0] != 1 {
		t.Fatalf("flushed = %v, want [1]", flushed)
	}

	// A second flush with nothing newly dirty writes nothing back.
	flushed = nil
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(flushed) != 0 {
		t.Fatalf("second flush wrote back %v, want none", flushed)
	}
}

func TestClearEmptiesCache(t *testing.T) {
	c := New[int](8, func(offset int64, v int) error { return nil })
	_ = c.Put(1, 1, true)
	_ = c.Put(2, 2, true)
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d, want 0", c.Len())
	}
}
