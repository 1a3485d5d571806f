// Package filekv is the embeddable facade over the file-backed ordered
// key/value store: an engine-backed directory of named maps, each an
// independent B-tree-indexed `.idx`/`.key`/`.val` (`.htx`) file triple. It
// plays the role the teacher codebase gave to pkg/ignite, wiring
// internal/engine and internal/mapdb behind a small, stable surface.
package filekv

import (
	"context"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/engine"
	"github.com/iamNilotpal/filekv/internal/mapdb"
	"github.com/iamNilotpal/filekv/pkg/keytype"
	"github.com/iamNilotpal/filekv/pkg/logger"
	"github.com/iamNilotpal/filekv/pkg/options"
)

// Map is an ordered key/value map, one `.idx`/`.key`/`.val` file triple
// (plus an optional `.htx` side file) inside the store's data directory.
type Map = mapdb.DB

// KV is a key/value pair used by bulk loads.
type KV = mapdb.KV

// DB is an instance of the filekv store. It encapsulates the directory-level
// registry responsible for opening and tracking named maps, plus the
// configuration options applied to this instance.
type DB struct {
	engine  *engine.Engine
	options *options.Options
}

// Open creates and initializes a new DB instance rooted at the data
// directory named in opts (or options.DefaultDataDir). service tags every
// log line this instance emits, so multiple instances sharing a sink stay
// distinguishable.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*DB, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &DB{engine: eng, options: &defaultOpts}, nil
}

// chunkOpts translates the instance's buffered-I/O settings into the
// per-file option list internal/chunkfile expects.
func (db *DB) chunkOpts() []chunkfile.Option {
	co := db.options.ChunkOptions
	policy := chunkfile.LFU
	if co.Eviction == options.EvictionLRU {
		policy = chunkfile.LRU
	}
	return []chunkfile.Option{
		chunkfile.WithChunkSize(co.Size),
		chunkfile.WithMaxChunks(co.MaxChunks),
		chunkfile.WithEvictionPolicy(policy),
	}
}

// Map opens-or-creates, and returns, the named map using the key type kind.
// A second call with the same name returns the already-open map.
func (db *DB) Map(name string, kind keytype.Kind) (*Map, error) {
	return db.engine.Map(name, kind, db.chunkOpts()...)
}

// BytesMap opens-or-creates a map whose keys are raw byte strings.
func (db *DB) BytesMap(name string) (*Map, error) { return db.Map(name, keytype.Bytes) }

// StringMap opens-or-creates a map whose keys are UTF-8 strings.
func (db *DB) StringMap(name string) (*Map, error) { return db.Map(name, keytype.String) }

// Uint64Map opens-or-creates a map whose keys are big-endian u64 integers.
func (db *DB) Uint64Map(name string) (*Map, error) { return db.Map(name, keytype.Uint64) }

// Maps returns the names of every currently open map.
func (db *DB) Maps() []string { return db.engine.Names() }

// Close gracefully shuts down the DB instance: it stops the background
// compaction ticker (if enabled) and closes every open map, flushing their
// pending writes; Close does not fsync the files.
func (db *DB) Close() error {
	return db.engine.Close()
}
