package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestCache(t *testing.T, maxSize int64, eviction string) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New(Config{
		Dir:          t.TempDir(),
		MaxSizeBytes: maxSize,
		TTL:          time.Hour,
		Eviction:     eviction,
		ChunkSize:    64,
	}, clock)
	return c, clock
}

func TestPutThenGet_FastPath(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	data := []byte("hello chunk world")

	require.NoError(t, c.Put("movie:1", 0, data))

	got, ok := c.Get("movie:1", 0, int64(len(data)-1))
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestGet_PartialRangeWithinChunk(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	require.NoError(t, c.Put("movie:1", 0, []byte("0123456789")))

	got, ok := c.Get("movie:1", 2, 5)
	require.True(t, ok)
	assert.Equal(t, []byte("2345"), got)
}

func TestGet_CrossChunkStitching(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	require.NoError(t, c.Put("movie:1", 0, []byte("AAAA")))
	require.NoError(t, c.Put("movie:1", 4, []byte("BBBB")))

	got, ok := c.Get("movie:1", 2, 5)
	require.True(t, ok)
	assert.Equal(t, []byte("AABB"), got)
}

func TestGet_GapIsMiss(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	require.NoError(t, c.Put("movie:1", 0, []byte("AAAA")))
	require.NoError(t, c.Put("movie:1", 8, []byte("BBBB")))

	_, ok := c.Get("movie:1", 2, 9)
	assert.False(t, ok)
}

func TestGet_UnknownKeyIsMiss(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	_, ok := c.Get("nope", 0, 3)
	assert.False(t, ok)
}

func TestPut_EvictsLRUWhenOverCapacity(t *testing.T) {
	c, clock := newTestCache(t, 8, "lru")

	require.NoError(t, c.Put("a", 0, []byte("AAAA")))
	clock.now = clock.now.Add(time.Minute)
	require.NoError(t, c.Put("b", 0, []byte("BBBB")))

	// touch "a" so it is not the LRU entry anymore
	clock.now = clock.now.Add(15 * time.Second)
	_, _ = c.Get("a", 0, 3)

	clock.now = clock.now.Add(time.Minute)
	require.NoError(t, c.Put("c", 0, []byte("CCCC")))

	_, ok := c.Get("b", 0, 3)
	assert.False(t, ok, "b should have been evicted as least recently used")

	_, ok = c.Get("a", 0, 3)
	assert.True(t, ok)
	_, ok = c.Get("c", 0, 3)
	assert.True(t, ok)
}

func TestRebuild_RecoversIndexFromManifest(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	require.NoError(t, c.Put("movie:1", 0, []byte("persisted")))

	fresh := New(Config{Dir: c.dir, MaxSizeBytes: 1 << 20, TTL: time.Hour, Eviction: "lru", ChunkSize: 64}, nil)
	require.NoError(t, fresh.Rebuild())

	got, ok := fresh.Get("movie:1", 0, 8)
	require.True(t, ok)
	assert.Equal(t, []byte("persisted"), got)
}

func TestFallbackProbe_ServesFromDiskWithoutIndexEntry(t *testing.T) {
	c, _ := newTestCache(t, 1<<20, "lru")
	require.NoError(t, c.Put("movie:1", 0, []byte("diskonly")))

	// Drop the in-memory index entry but leave the file and manifest.
	c.mu.Lock()
	c.idx.reset()
	c.mu.Unlock()

	got, ok := c.Get("movie:1", 0, 7)
	require.True(t, ok)
	assert.Equal(t, []byte("diskonly"), got)
}
