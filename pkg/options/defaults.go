package options

import "time"

const (
	// DefaultCompactInterval is a suggested background ticker period. No
	// option applies it: the ticker stays off until WithCompactInterval is
	// given a positive duration.
	DefaultCompactInterval = 5 * time.Minute

	// DefaultDataDir is the directory used when the host does not specify
	// one explicitly.
	DefaultDataDir = "./filekv-data"

	// MinChunkSize and MaxChunkSize bound WithChunkSize.
	MinChunkSize int64 = 512
	MaxChunkSize int64 = 1 * 1024 * 1024

	// DefaultChunkSize is the buffered-I/O chunk size used under "auto"
	// sizing.
	DefaultChunkSize int64 = 4 * 1024

	// DefaultMaxChunks caps the chunk array per file under auto sizing.
	DefaultMaxChunks = 16

	// DefaultNodeCacheCapacity is the node cache's capacity under auto
	// sizing.
	DefaultNodeCacheCapacity = 64

	// DefaultKeyCacheCapacity is the key cache's capacity under auto
	// sizing.
	DefaultKeyCacheCapacity = 128

	// DefaultHashTableSize is the hash-side file's slot count when enabled
	// without an explicit size.
	DefaultHashTableSize uint64 = 10 * 1024 * 1024
)

// defaultOptions holds the default configuration settings for the store.
var defaultOptions = Options{
	DataDir: DefaultDataDir,
	ChunkOptions: &chunkOptions{
		Size:      DefaultChunkSize,
		MaxChunks: DefaultMaxChunks,
		Eviction:  EvictionLFU,
	},
	CacheOptions: &cacheOptions{
		NodeCacheCapacity: DefaultNodeCacheCapacity,
		KeyCacheCapacity:  DefaultKeyCacheCapacity,
	},
	HashOptions: &hashOptions{
		Enabled:   false,
		TableSize: DefaultHashTableSize,
	},
}

// NewDefaultOptions returns a fresh copy of the default options (the nested
// option groups are deep-copied so callers can mutate their own instance).
func NewDefaultOptions() Options {
	o := defaultOptions
	chunk := *defaultOptions.ChunkOptions
	cache := *defaultOptions.CacheOptions
	hash := *defaultOptions.HashOptions
	o.ChunkOptions = &chunk
	o.CacheOptions = &cache
	o.HashOptions = &hash
	return o
}
