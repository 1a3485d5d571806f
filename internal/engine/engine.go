// Package engine provides the directory-level registry that opens, tracks
// and closes the named maps living inside one database directory. It plays
// the role the teacher's Bitcask engine gave to its index/storage/compaction
// trio, but a map's actual key lookup and B-tree maintenance belongs to
// internal/mapdb; the engine only ever touches a map through its public
// SyncData, Name and Close methods.
package engine

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/filekv/internal/chunkfile"
	"github.com/iamNilotpal/filekv/internal/mapdb"
	"github.com/iamNilotpal/filekv/pkg/errors"
	"github.com/iamNilotpal/filekv/pkg/filesys"
	"github.com/iamNilotpal/filekv/pkg/keytype"
	"github.com/iamNilotpal/filekv/pkg/options"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Engine is the directory-level registry: it maps names to the *mapdb.DB
// each one opens-or-creates, and runs the optional background compaction
// ticker that flushes/syncs every registered map.
//
// This repurposes the teacher's in-memory Index struct (mutex-guarded map
// plus an atomic closed flag) for a different key: instead of mapping user
// keys to on-disk record pointers, it maps map names to open controllers.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger

	mu    sync.RWMutex
	maps  map[string]*mapdb.DB
	kinds map[string]keytype.Kind

	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates and initializes a new Engine instance with the provided configuration.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "engine configuration is required",
		).WithField("config").WithRule("required")
	}

	if err := filesys.CreateDir(config.Options.DataDir, 0o755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, config.Options.DataDir)
	}

	e := &Engine{
		options: config.Options,
		log:     config.Logger,
		maps:    make(map[string]*mapdb.DB, 8),
		kinds:   make(map[string]keytype.Kind, 8),
		stopCh:  make(chan struct{}),
	}

	if config.Options.CompactInterval > 0 {
		e.wg.Add(1)
		go e.compactionLoop(config.Options.CompactInterval)
	}

	return e, nil
}

// Map opens-or-creates, and returns, the map named name, keyed by kind. A
// second call with the same name returns the already-open controller
// regardless of the kind/opts passed, matching how a process is expected to
// open each of its maps exactly once.
func (e *Engine) Map(name string, kind keytype.Kind, opts ...chunkfile.Option) (*mapdb.DB, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.RLock()
	if db, ok := e.maps[name]; ok {
		e.mu.RUnlock()
		return db, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.maps[name]; ok {
		return db, nil
	}

	db, err := mapdb.Open(e.options.DataDir, name, kind, mapdb.Config{
		ChunkOpts:         opts,
		NodeCacheCapacity: e.options.CacheOptions.NodeCacheCapacity,
		KeyCacheCapacity:  e.options.CacheOptions.KeyCacheCapacity,
		HashEnabled:       e.options.HashOptions.Enabled,
		HashTableSize:     e.options.HashOptions.TableSize,
		Logger:            e.log,
	})
	if err != nil {
		return nil, err
	}

	e.maps[name] = db
	e.kinds[name] = kind
	e.log.Infow("map opened", "name", name, "kind", kind.String())
	return db, nil
}

// Lookup returns the already-open map named name, if any.
func (e *Engine) Lookup(name string) (*mapdb.DB, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	db, ok := e.maps[name]
	return db, ok
}

// Names returns the names of every currently open map.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.maps))
	for n := range e.maps {
		names = append(names, n)
	}
	return names
}

// compactionLoop periodically flushes and syncs every open map. It only
// ever calls a map's own SyncData, which locks the same per-map mutex every
// other mapdb.DB method does, so the ticker is safe to run concurrently
// with a caller's own Get/Put/Delete traffic on the same map.
func (e *Engine) compactionLoop(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.compactOnce()
		}
	}
}

func (e *Engine) compactOnce() {
	e.mu.RLock()
	dbs := make([]*mapdb.DB, 0, len(e.maps))
	for _, db := range e.maps {
		dbs = append(dbs, db)
	}
	e.mu.RUnlock()

	for _, db := range dbs {
		if err := db.SyncData(); err != nil {
			e.log.Errorw("background sync failed", "map", db.Name(), "error", err)
		}
	}
}

// Close gracefully shuts down the engine: stops the compaction ticker and
// closes every open map, collecting every error encountered rather than
// stopping at the first.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	close(e.stopCh)
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	for name, db := range e.maps {
		if cerr := db.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
		delete(e.maps, name)
	}
	return err
}
