package cache

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"reelarr/internal/apperr"
)

// Clock is the subset of time behavior the cache needs, satisfied by
// jonboulle/clockwork.Clock in production and a fake in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Cache is the chunked on-disk block cache described in spec §4.3: an
// in-memory index guarding disk I/O that never happens under lock.
type Cache struct {
	dir       string
	chunkSize int64

	mu    sync.Mutex
	idx   *index
	clock Clock
}

// Config mirrors config.CacheConfig without importing the config
// package, keeping this package dependency-free of the process-wide
// settings tree.
type Config struct {
	Dir          string
	MaxSizeBytes int64
	TTL          time.Duration
	Eviction     string
	ChunkSize    int64
}

// New constructs a Cache. Pass clock for deterministic tests; nil uses
// wall-clock time.
func New(cfg Config, clock Clock) *Cache {
	if clock == nil {
		clock = realClock{}
	}
	return &Cache{
		dir:       cfg.Dir,
		chunkSize: cfg.ChunkSize,
		idx:       newIndex(cfg.MaxSizeBytes, cfg.TTL, cfg.Eviction),
		clock:     clock,
	}
}

// Get returns exactly end-start+1 bytes if the range is fully present,
// or (nil, false) on any miss. It never returns a partial read.
func (c *Cache) Get(cacheKey string, start, end int64) ([]byte, bool) {
	if end < start {
		return nil, false
	}

	// Fast path: single covering chunk.
	c.mu.Lock()
	entry, ok := c.idx.lookupCovering(cacheKey, start, end)
	c.mu.Unlock()
	if ok {
		data, err := c.readSlice(entry.key, start-entry.key.start, end-start+1)
		if err == nil {
			c.mu.Lock()
			c.idx.touch(entry, c.clock.Now())
			c.mu.Unlock()
			return data, true
		}
		c.handleReadFailure(entry.key, err)
		// fall through to slow path / fallback probe
	}

	// Slow path: cross-chunk stitching.
	c.mu.Lock()
	chain, ok := c.idx.planChain(cacheKey, start, end)
	c.mu.Unlock()
	if ok {
		buf, err := c.readChain(chain, start, end)
		if err == nil {
			now := c.clock.Now()
			c.mu.Lock()
			for _, e := range chain {
				c.idx.touch(e, now)
			}
			c.mu.Unlock()
			return buf, true
		}
		slog.Warn("chunk cache slow path read failed", "cache_key", cacheKey, "error", err)
		return nil, false
	}

	// Fallback probe: index has no exact entry at start, but the file
	// may still be on disk from a prior run or a concurrent writer.
	if data, ok := c.fallbackProbe(cacheKey, start, end); ok {
		return data, true
	}

	return nil, false
}

func (c *Cache) readSlice(key chunkKey, offset, length int64) ([]byte, error) {
	f, err := os.Open(chunkPath(c.dir, key.cacheKey, key.start))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Cache) readChain(chain []*indexEntry, start, end int64) ([]byte, error) {
	var buf bytes.Buffer
	cursor := start
	for _, e := range chain {
		chunkEnd := e.key.start + e.size - 1
		readStart := max64(cursor, e.key.start)
		readEnd := min64(end, chunkEnd)
		data, err := c.readSlice(e.key, readStart-e.key.start, readEnd-readStart+1)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		cursor = readEnd + 1
		if cursor > end {
			break
		}
	}
	return buf.Bytes(), nil
}

func (c *Cache) fallbackProbe(cacheKey string, start, end int64) ([]byte, bool) {
	path := chunkPath(c.dir, cacheKey, start)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	size := info.Size()
	if start+size-1 < end {
		return nil, false
	}
	data, err := c.readSlice(chunkKey{cacheKey, start}, 0, end-start+1)
	if err != nil {
		return nil, false
	}
	now := c.clock.Now()
	c.mu.Lock()
	c.idx.insert(chunkKey{cacheKey, start}, size, now)
	c.mu.Unlock()
	slog.Debug("chunk cache fallback probe rebuilt index entry", "cache_key", cacheKey, "start", start)
	return data, true
}

func (c *Cache) handleReadFailure(key chunkKey, err error) {
	slog.Warn("chunk cache read failed, evicting stale entry", "cache_key", key.cacheKey, "start", key.start, "error", err)
	c.mu.Lock()
	if entry, ok := c.idx.entries[key]; ok {
		c.idx.removeEntry(entry)
	}
	c.mu.Unlock()
}

// Put stores one chunk's worth of data, evicting per policy first to
// make room, writing atomically (write-then-rename), then publishing the
// new entry into the index (spec §4.3 "put").
func (c *Cache) Put(cacheKey string, start int64, data []byte) error {
	need := int64(len(data))

	c.mu.Lock()
	c.evictLocked(need)
	c.mu.Unlock()

	path := chunkPath(c.dir, cacheKey, start)
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return fmt.Errorf("put chunk %s@%d: %w: %w", cacheKey, start, apperr.CacheIOFailure, err)
	}
	if err := writeAtomic(path, data); err != nil {
		slog.Error("chunk cache write failed", "cache_key", cacheKey, "start", start, "error", err)
		return fmt.Errorf("put chunk %s@%d: %w: %w", cacheKey, start, apperr.CacheIOFailure, err)
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.idx.insert(chunkKey{cacheKey, start}, need, now)
	c.mu.Unlock()
	appendManifest(c.dir, manifestRecord{CacheKey: cacheKey, Start: start, Size: need, WrittenAt: now})
	return nil
}

// evictLocked must be called with c.mu held. It applies the configured
// eviction policy until there is room for need additional bytes.
func (c *Cache) evictLocked(need int64) {
	switch c.idx.eviction {
	case "ttl":
		now := c.clock.Now()
		for _, e := range c.idx.expired(now) {
			c.deleteEntryFile(e)
			c.idx.removeEntry(e)
		}
	default: // lru
		for c.idx.total+need > c.idx.maxSize {
			oldest := c.idx.oldest()
			if oldest == nil {
				return
			}
			c.deleteEntryFile(oldest)
			c.idx.removeEntry(oldest)
		}
	}
}

func (c *Cache) deleteEntryFile(e *indexEntry) {
	path := chunkPath(c.dir, e.key.cacheKey, e.key.start)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove evicted chunk file", "path", path, "error", err)
	}
}

// Trim applies the configured eviction policy and, if the running total
// still exceeds max_size_bytes after accounting drift, triggers a full
// rescan and rebuild (spec §4.3 "Trim").
func (c *Cache) Trim() error {
	c.mu.Lock()
	c.evictLocked(0)
	over := c.idx.total > c.idx.maxSize
	c.mu.Unlock()

	if over {
		slog.Warn("chunk cache total exceeds budget after eviction, rebuilding from disk")
		return c.Rebuild()
	}
	return nil
}

// Rebuild performs the startup cold-start scan: read the write manifest,
// drop any record whose file no longer exists, sort the rest by mtime
// ascending, populate the index, then evict until within budget (spec
// §4.3 "Startup rebuild").
func (c *Cache) Rebuild() error {
	records, err := readManifest(c.dir)
	if err != nil {
		return fmt.Errorf("rebuild chunk cache index: %w", err)
	}

	live := records[:0]
	for _, rec := range records {
		info, err := os.Stat(chunkPath(c.dir, rec.CacheKey, rec.Start))
		if err != nil {
			continue
		}
		rec.WrittenAt = info.ModTime()
		rec.Size = info.Size()
		live = append(live, rec)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].WrittenAt.Before(live[j].WrittenAt) })

	c.mu.Lock()
	c.idx.reset()
	for _, rec := range live {
		c.idx.insert(chunkKey{rec.CacheKey, rec.Start}, rec.Size, rec.WrittenAt)
	}
	var evicted []chunkKey
	for c.idx.total > c.idx.maxSize {
		oldest := c.idx.oldest()
		if oldest == nil {
			break
		}
		evicted = append(evicted, oldest.key)
		c.deleteEntryFile(oldest)
		c.idx.removeEntry(oldest)
	}
	remaining := make([]manifestRecord, 0, len(live))
	for _, rec := range live {
		if !containsKey(evicted, chunkKey{rec.CacheKey, rec.Start}) {
			remaining = append(remaining, rec)
		}
	}
	c.mu.Unlock()

	if err := rewriteManifest(c.dir, remaining); err != nil {
		slog.Warn("failed to compact chunk cache manifest", "error", err)
	}
	return nil
}

// ListEntry describes one cached chunk for the admin "list VFS files"
// surface (spec §6).
type ListEntry struct {
	CacheKey   string
	Start      int64
	Size       int64
	LastAccess time.Time
}

// List returns every cached chunk, most recently used first. Read-only
// snapshot; callers must not mutate the returned slice's backing data.
func (c *Cache) List() []ListEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ListEntry, 0, len(c.idx.entries))
	for e := c.idx.head.next; e != c.idx.tail; e = e.next {
		out = append(out, ListEntry{
			CacheKey:   e.key.cacheKey,
			Start:      e.key.start,
			Size:       e.size,
			LastAccess: e.lastAccess,
		})
	}
	return out
}

func containsKey(keys []chunkKey, k chunkKey) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
