package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iamNilotpal/filekv/pkg/keytype"
	"github.com/iamNilotpal/filekv/pkg/options"
)

func newEngine(t *testing.T, cfgOpts ...options.OptionFunc) *Engine {
	t.Helper()
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	for _, o := range cfgOpts {
		o(&opts)
	}
	e, err := New(context.Background(), &Config{Options: &opts, Logger: zap.NewNop().Sugar()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestMapOpensOnce(t *testing.T) {
	e := newEngine(t)

	db1, err := e.Map("users", keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	db2, err := e.Map("users", keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	if db1 != db2 {
		t.Fatal("second Map call with the same name should return the already-open controller")
	}
}

func TestNamesReportsOpenMaps(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Map("a", keytype.String); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Map("b", keytype.String); err != nil {
		t.Fatal(err)
	}
	names := e.Names()
	if len(names) != 2 {
		t.Fatalf("got %v, want 2 names", names)
	}
}

func TestLookupMissing(t *testing.T) {
	e := newEngine(t)
	if _, ok := e.Lookup("absent"); ok {
		t.Fatal("expected miss for a never-opened map")
	}
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Map("a", keytype.String); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != ErrEngineClosed {
		t.Fatalf("second Close() = %v, want ErrEngineClosed", err)
	}
	if _, err := e.Map("b", keytype.String); err != ErrEngineClosed {
		t.Fatalf("Map() on closed engine = %v, want ErrEngineClosed", err)
	}
}

func TestCompactionTickerSyncsOpenMaps(t *testing.T) {
	e := newEngine(t, options.WithCompactInterval(20*time.Millisecond))

	db, err := e.Map("a", keytype.String)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put(keytype.StringKey("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	// The ticker runs on its own goroutine; give it a couple of periods to
	// fire at least once. This only asserts it doesn't corrupt the map it
	// syncs, since there is no external signal to await synchronously.
	time.Sleep(60 * time.Millisecond)

	got, found, err := db.Get(keytype.StringKey("k"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(got) != "v" {
		t.Fatalf("got (%q, %v), want (\"v\", true)", got, found)
	}
}
