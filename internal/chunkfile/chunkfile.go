// Package chunkfile implements a buffered random-access file abstraction
// backed by a bounded set of fixed-size, power-of-two-aligned chunks. It
// amortizes I/O for the small, scattered reads and writes that VarInt and
// fixed-field codecs perform, and evicts chunks under a Least-Frequently-Used
// or Least-Recently-Used policy when the chunk budget is exhausted.
package chunkfile

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/iamNilotpal/filekv/pkg/errors"
)

// EvictionPolicy selects how a full chunk cache picks a victim.
type EvictionPolicy int

const (
	// LFU evicts the chunk with the lowest use counter, ties broken to the
	// first chunk scanned (the original, and default, behaviour).
	LFU EvictionPolicy = iota
	// LRU evicts the least-recently-touched chunk.
	LRU
)

const (
	// DefaultChunkSize is used when the host does not ask for a specific
	// buffer size ("auto" sizing).
	DefaultChunkSize = 4 * 1024
	// DefaultMaxChunks caps the chunk array under auto sizing.
	DefaultMaxChunks = 16
)

type chunk struct {
	data   []byte
	offset int64
	dirty  bool
	freq   uint64 // bumped on every access; used to rank LFU eviction
	last   uint64 // set to the current tick on every access; used for LRU
}

// File is a buffered random-access file. It is not safe for concurrent use.
type File struct {
	f         *os.File
	name      string
	chunkSize int64
	chunkMask int64
	maxChunks int
	policy    EvictionPolicy

	chunks []*chunk
	index  map[int64]int // aligned offset -> index into chunks

	pos int64 // current logical read/write position
	end int64 // known file length

	tick   uint64 // monotonic counter driving use ordering
	logger *zap.SugaredLogger
}

// Option configures a File at Open time.
type Option func(*File)

// WithChunkSize overrides the chunk size. It must be a power of two.
func WithChunkSize(n int64) Option {
	return func(f *File) {
		if n > 0 && n&(n-1) == 0 {
			f.chunkSize = n
		}
	}
}

// WithMaxChunks overrides the number of chunks kept resident.
func WithMaxChunks(n int) Option {
	return func(f *File) {
		if n > 0 {
			f.maxChunks = n
		}
	}
}

// WithEvictionPolicy selects LFU (default) or LRU eviction.
func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(f *File) { f.policy = p }
}

// WithLogger attaches a structured logger; a no-op logger is used otherwise.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithBufferBytes sizes the chunk budget from an absolute byte count,
// converting it to a chunk count at the current chunk size.
func WithBufferBytes(bytes int64) Option {
	return func(f *File) {
		if bytes > 0 && f.chunkSize > 0 {
			n := int(bytes / f.chunkSize)
			if n > 0 {
				f.maxChunks = n
			}
		}
	}
}

// Open opens or creates path and wraps it in a buffered File.
func Open(path string, opts ...Option) (*File, error) {
	osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	f := &File{
		f:         osFile,
		name:      path,
		chunkSize: DefaultChunkSize,
		maxChunks: DefaultMaxChunks,
		index:     make(map[int64]int),
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.chunkMask = f.chunkSize - 1

	info, err := osFile.Stat()
	if err != nil {
		osFile.Close()
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "chunkfile: failed to stat opened file",
		).WithPath(path).WithFileName(filepath.Base(path)).WithDetail("operation", "stat")
	}
	f.end = info.Size()
	return f, nil
}

// Name returns the underlying path.
func (f *File) Name() string { return f.name }

// ChunkSize returns the configured chunk size.
func (f *File) ChunkSize() int64 { return f.chunkSize }

// Len returns the known file length.
func (f *File) Len() int64 { return f.end }

// SeekFromStart positions the logical cursor at an absolute offset.
func (f *File) SeekFromStart(offset int64) (int64, error) {
	f.pos = offset
	return f.pos, nil
}

// SeekToEnd positions the logical cursor at the current end of file.
func (f *File) SeekToEnd() (int64, error) {
	f.pos = f.end
	return f.pos, nil
}

// Pos returns the logical cursor.
func (f *File) Pos() int64 { return f.pos }

func (f *File) align(offset int64) int64 { return offset &^ f.chunkMask }

// fetch returns the chunk covering offset, faulting it in or evicting a
// victim as necessary.
func (f *File) fetch(offset int64) (*chunk, error) {
	aligned := f.align(offset)
	if idx, ok := f.index[aligned]; ok {
		c := f.chunks[idx]
		f.touch(c)
		return c, nil
	}

	if len(f.chunks) < f.maxChunks {
		c, err := f.load(aligned)
		if err != nil {
			return nil, err
		}
		f.index[aligned] = len(f.chunks)
		f.chunks = append(f.chunks, c)
		return c, nil
	}

	victimIdx := f.pickVictim()
	victim := f.chunks[victimIdx]
	if victim.dirty {
		if err := f.writeback(victim); err != nil {
			return nil, err
		}
	}
	delete(f.index, victim.offset)

	replacement, err := f.load(aligned)
	if err != nil {
		return nil, err
	}
	f.chunks[victimIdx] = replacement
	f.index[aligned] = victimIdx
	return replacement, nil
}

func (f *File) touch(c *chunk) {
	f.tick++
	c.freq++
	c.last = f.tick
}

// pickVictim scans the resident chunks for the lowest-ranked one under the
// configured policy, breaking ties to the first chunk scanned.
func (f *File) pickVictim() int {
	victimIdx := 0
	var rank func(i int) uint64
	if f.policy == LRU {
		rank = func(i int) uint64 { return f.chunks[i].last }
	} else {
		rank = func(i int) uint64 { return f.chunks[i].freq }
	}
	lowest := rank(0)
	for i := 1; i < len(f.chunks); i++ {
		if r := rank(i); r < lowest {
			lowest = r
			victimIdx = i
		}
	}
	return victimIdx
}

func (f *File) load(aligned int64) (*chunk, error) {
	c := &chunk{data: make([]byte, f.chunkSize), offset: aligned}
	f.touch(c)
	if aligned >= f.end {
		return c, nil // wholly past EOF: zero-filled
	}
	n, err := f.f.ReadAt(c.data, aligned)
	if err != nil && err != io.EOF {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "chunkfile: chunk read failed",
		).WithPath(f.name).WithFileName(filepath.Base(f.name)).WithOffset(int(aligned)).
			WithDetail("operation", "chunk_read")
	}
	_ = n // short reads near EOF leave the tail zero-filled, which is correct
	return c, nil
}

func (f *File) writeback(c *chunk) error {
	writeLen := f.chunkSize
	if c.offset+writeLen > f.end {
		writeLen = f.end - c.offset
		if writeLen < 0 {
			writeLen = 0
		}
	}
	if writeLen == 0 {
		c.dirty = false
		return nil
	}
	if _, err := f.f.WriteAt(c.data[:writeLen], c.offset); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "chunkfile: chunk writeback failed",
		).WithPath(f.name).WithFileName(filepath.Base(f.name)).WithOffset(int(c.offset)).
			WithDetail("operation", "chunk_writeback")
	}
	c.dirty = false
	return nil
}

// ReadExact reads exactly len(buf) bytes starting at the logical cursor,
// advancing it, and may span multiple chunks.
func (f *File) ReadExact(buf []byte) error {
	offset := f.pos
	remaining := buf
	for len(remaining) > 0 {
		c, err := f.fetch(offset)
		if err != nil {
			return err
		}
		inChunk := offset - c.offset
		n := copy(remaining, c.data[inChunk:])
		remaining = remaining[n:]
		offset += int64(n)
	}
	f.pos = offset
	return nil
}

// ReadExactSmall is ReadExact specialised for buffers no larger than the
// chunk size: when the read fits entirely within one chunk it avoids the
// generic spanning loop.
func (f *File) ReadExactSmall(buf []byte) error {
	if int64(len(buf)) > f.chunkSize {
		return f.ReadExact(buf)
	}
	c, err := f.fetch(f.pos)
	if err != nil {
		return err
	}
	inChunk := f.pos - c.offset
	if inChunk+int64(len(buf)) <= f.chunkSize {
		copy(buf, c.data[inChunk:inChunk+int64(len(buf))])
		f.pos += int64(len(buf))
		return nil
	}
	return f.ReadExact(buf)
}

// WriteAll writes buf at the logical cursor, advancing it and extending the
// file length as needed, marking every touched chunk dirty. It may span
// multiple chunks.
func (f *File) WriteAll(buf []byte) error {
	offset := f.pos
	remaining := buf
	for len(remaining) > 0 {
		c, err := f.fetch(offset)
		if err != nil {
			return err
		}
		inChunk := offset - c.offset
		n := copy(c.data[inChunk:], remaining)
		c.dirty = true
		remaining = remaining[n:]
		offset += int64(n)
		if offset > f.end {
			f.end = offset
		}
	}
	f.pos = offset
	return nil
}

// WriteAllSmall is WriteAll specialised for buffers no larger than the
// chunk size.
func (f *File) WriteAllSmall(buf []byte) error {
	if int64(len(buf)) > f.chunkSize {
		return f.WriteAll(buf)
	}
	c, err := f.fetch(f.pos)
	if err != nil {
		return err
	}
	inChunk := f.pos - c.offset
	if inChunk+int64(len(buf)) <= f.chunkSize {
		copy(c.data[inChunk:inChunk+int64(len(buf))], buf)
		c.dirty = true
		f.pos += int64(len(buf))
		if f.pos > f.end {
			f.end = f.pos
		}
		return nil
	}
	return f.WriteAll(buf)
}

// WriteZeroTo zero-fills from the current cursor up to (not including) end.
func (f *File) WriteZeroTo(end int64) error {
	if end <= f.pos {
		return nil
	}
	zero := make([]byte, f.chunkSize)
	for f.pos < end {
		n := end - f.pos
		if n > f.chunkSize {
			n = f.chunkSize
		}
		if err := f.WriteAll(zero[:n]); err != nil {
			return err
		}
	}
	return nil
}

// SetLen truncates the logical and on-disk length to n. Chunks wholly
// beyond n are invalidated (dropped from the cache); chunks straddling n
// are retained (their tail beyond n is stale but unreachable since future
// reads/writes past n re-extend and re-zero it).
func (f *File) SetLen(n int64) error {
	if err := f.f.Truncate(n); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "chunkfile: truncate failed",
		).WithPath(f.name).WithFileName(filepath.Base(f.name)).WithOffset(int(n)).
			WithDetail("operation", "truncate")
	}
	f.end = n
	if f.pos > n {
		f.pos = n
	}
	for offset, idx := range f.index {
		if offset >= n {
			delete(f.index, offset)
			f.chunks[idx] = nil
		}
	}
	live := f.chunks[:0]
	newIndex := make(map[int64]int, len(f.index))
	for _, c := range f.chunks {
		if c == nil {
			continue
		}
		newIndex[c.offset] = len(live)
		live = append(live, c)
	}
	f.chunks = live
	f.index = newIndex
	return nil
}

// Flush writes back every dirty chunk, in index order, capped by the
// current end of file.
func (f *File) Flush() error {
	for _, c := range f.chunks {
		if c.dirty {
			if err := f.writeback(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncData flushes then forces file data to stable storage.
func (f *File) SyncData() error {
	if err := f.Flush(); err != nil {
		return err
	}
	if err := f.f.Sync(); err != nil {
		return errors.ClassifySyncError(err, filepath.Base(f.name), f.name, int(f.end))
	}
	return nil
}

// SyncAll flushes then forces file data and metadata to stable storage.
// The Go standard library exposes only File.Sync, which already syncs
// metadata, so SyncAll and SyncData share an implementation here.
func (f *File) SyncAll() error {
	return f.SyncData()
}

// Close attempts a best-effort flush and closes the underlying file.
func (f *File) Close() error {
	if err := f.Flush(); err != nil {
		f.logger.Warnw("chunkfile: flush on close failed", "file", f.name, "error", err)
	}
	return f.f.Close()
}
