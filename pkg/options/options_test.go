package options

import "testing"

func TestDefaultOptionsAreIndependentCopies(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()
	a.ChunkOptions.Size = 1024
	if b.ChunkOptions.Size == 1024 {
		t.Fatal("mutating one copy's ChunkOptions should not affect another's")
	}
}

func TestWithChunkSizeRejectsNonPowerOfTwo(t *testing.T) {
	o := NewDefaultOptions()
	original := o.ChunkOptions.Size
	WithChunkSize(1000)(&o)
	if o.ChunkOptions.Size != original {
		t.Fatalf("chunk size = %d, want unchanged %d", o.ChunkOptions.Size, original)
	}
}

func TestWithChunkSizeRejectsOutOfRange(t *testing.T) {
	o := NewDefaultOptions()
	original := o.ChunkOptions.Size
	WithChunkSize(MinChunkSize / 2)(&o)
	if o.ChunkOptions.Size != original {
		t.Fatal("chunk size below the minimum should be rejected")
	}
	WithChunkSize(MaxChunkSize * 2)(&o)
	if o.ChunkOptions.Size != original {
		t.Fatal("chunk size above the maximum should be rejected")
	}
}

func TestWithChunkSizeAcceptsValidPowerOfTwo(t *testing.T) {
	o := NewDefaultOptions()
	WithChunkSize(8192)(&o)
	if o.ChunkOptions.Size != 8192 {
		t.Fatalf("chunk size = %d, want 8192", o.ChunkOptions.Size)
	}
}

func TestWithHashIndexEnablesAndSetsSize(t *testing.T) {
	o := NewDefaultOptions()
	WithHashIndex(2048)(&o)
	if !o.HashOptions.Enabled {
		t.Fatal("hash index should be enabled")
	}
	if o.HashOptions.TableSize != 2048 {
		t.Fatalf("table size = %d, want 2048", o.HashOptions.TableSize)
	}
}

func TestWithHashIndexZeroKeepsDefaultSize(t *testing.T) {
	o := NewDefaultOptions()
	WithHashIndex(0)(&o)
	if o.HashOptions.TableSize != DefaultHashTableSize {
		t.Fatalf("table size = %d, want default %d", o.HashOptions.TableSize, DefaultHashTableSize)
	}
}

func TestWithoutHashIndexDisables(t *testing.T) {
	o := NewDefaultOptions()
	WithHashIndex(0)(&o)
	WithoutHashIndex()(&o)
	if o.HashOptions.Enabled {
		t.Fatal("hash index should be disabled")
	}
}

func TestWithDataDirTrimsAndIgnoresBlank(t *testing.T) {
	o := NewDefaultOptions()
	WithDataDir("  /tmp/foo  ")(&o)
	if o.DataDir != "/tmp/foo" {
		t.Fatalf("data dir = %q, want /tmp/foo", o.DataDir)
	}
	WithDataDir("   ")(&o)
	if o.DataDir != "/tmp/foo" {
		t.Fatal("a blank data dir should be ignored, not applied")
	}
}

func TestWithCompactIntervalRejectsNegative(t *testing.T) {
	o := NewDefaultOptions()
	WithCompactInterval(-1)(&o)
	if o.CompactInterval != 0 {
		t.Fatalf("compact interval = %v, want unchanged 0", o.CompactInterval)
	}
}
