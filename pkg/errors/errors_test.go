package errors

import "testing"

func TestNodeCorruptionErrorCarriesContext(t *testing.T) {
	err := NewNodeCorruptionError(4096, "ReadNode", nil)
	if err.Code() != ErrorCodeIndexCorrupted {
		t.Fatalf("code = %v, want %v", err.Code(), ErrorCodeIndexCorrupted)
	}
	if err.Offset() != 4096 {
		t.Fatalf("offset = %d, want 4096", err.Offset())
	}
	if err.Operation() != "ReadNode" {
		t.Fatalf("operation = %q, want \"ReadNode\"", err.Operation())
	}
}

func TestIndexErrorKeyAndDepth(t *testing.T) {
	err := NewIndexError(nil, ErrorCodeIndexCorrupted, "descent exceeded tree height").
		WithKey("apple").
		WithOperation("Get").
		WithDepth(64)
	if err.Key() != "apple" {
		t.Fatalf("key = %q, want \"apple\"", err.Key())
	}
	if err.Depth() != 64 {
		t.Fatalf("depth = %d, want 64", err.Depth())
	}
}

func TestFormatCorruptedStorageError(t *testing.T) {
	err := NewStorageError(nil, ErrorCodeFormatCorrupted, "bad header signature").
		WithFileName("t.idx").
		WithPath("/data/t.idx")
	if err.Code() != ErrorCodeFormatCorrupted {
		t.Fatalf("code = %v, want %v", err.Code(), ErrorCodeFormatCorrupted)
	}
	if err.Error() != "bad header signature" {
		t.Fatalf("message = %q", err.Error())
	}
	if err.Path() != "/data/t.idx" {
		t.Fatalf("path = %q, want \"/data/t.idx\"", err.Path())
	}
}

func TestCapacityExceededStorageError(t *testing.T) {
	err := NewStorageError(nil, ErrorCodeCapacityExceeded, "key exceeds maximum length").
		WithFileName("t.key").
		WithOffset(128)
	if err.Code() != ErrorCodeCapacityExceeded {
		t.Fatalf("code = %v, want %v", err.Code(), ErrorCodeCapacityExceeded)
	}
	if err.Offset() != 128 {
		t.Fatalf("offset = %d, want 128", err.Offset())
	}
}

func TestGetErrorCodeFallsBackToInternal(t *testing.T) {
	if code := GetErrorCode(nil); code != ErrorCodeInternal {
		t.Fatalf("code = %v, want %v", code, ErrorCodeInternal)
	}
}
