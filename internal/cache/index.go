package cache

import (
	"sort"
	"time"
)

// chunkKey identifies one stored chunk.
type chunkKey struct {
	cacheKey string
	start    int64
}

// indexEntry is a node in the intrusive LRU list, generalized from
// cartographus's LRUEntry to carry a chunk's size and cache key instead
// of a bare timestamp.
type indexEntry struct {
	key        chunkKey
	size       int64
	lastAccess time.Time
	prev, next *indexEntry
}

// index is the in-memory map + eviction list guarding every cache
// mutation. I/O never happens while the lock the caller holds around
// index methods is held — callers plan/commit under the lock and do the
// actual file read/write outside it (spec §4.3 fast/slow path).
type index struct {
	maxSize  int64
	ttl      time.Duration
	eviction string // "lru" or "ttl"

	entries map[chunkKey]*indexEntry
	perKey  map[string][]int64 // cacheKey -> sorted chunk starts
	total   int64

	head, tail *indexEntry
}

func newIndex(maxSize int64, ttl time.Duration, eviction string) *index {
	idx := &index{
		maxSize:  maxSize,
		ttl:      ttl,
		eviction: eviction,
		entries:  make(map[chunkKey]*indexEntry),
		perKey:   make(map[string][]int64),
		head:     &indexEntry{},
		tail:     &indexEntry{},
	}
	idx.head.next = idx.tail
	idx.tail.prev = idx.head
	return idx
}

// lookupCovering returns the entry whose range [start, start+size-1]
// fully covers [rangeStart, rangeEnd]. Only the chunk with the greatest
// start <= rangeStart is considered; if it does not reach rangeEnd the
// lookup misses.
func (idx *index) lookupCovering(cacheKey string, rangeStart, rangeEnd int64) (*indexEntry, bool) {
	starts := idx.perKey[cacheKey]
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > rangeStart })
	if i == 0 {
		return nil, false
	}
	cs := starts[i-1]
	entry, ok := idx.entries[chunkKey{cacheKey, cs}]
	if !ok {
		return nil, false
	}
	if cs+entry.size-1 < rangeEnd {
		return nil, false
	}
	return entry, true
}

// planChain walks contiguous covering chunks from start to end, aborting
// at the first gap (spec §4.3 slow path "Plan under lock").
func (idx *index) planChain(cacheKey string, start, end int64) ([]*indexEntry, bool) {
	starts := idx.perKey[cacheKey]
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > start })
	if i == 0 {
		return nil, false
	}
	var chain []*indexEntry
	cursor := start
	for i > 0 && i <= len(starts) {
		cs := starts[i-1]
		entry, ok := idx.entries[chunkKey{cacheKey, cs}]
		if !ok || cs > cursor {
			return nil, false
		}
		chain = append(chain, entry)
		covered := cs + entry.size - 1
		if covered >= end {
			return chain, true
		}
		cursor = covered + 1
		// advance to the next chunk start, which must pick up exactly
		// where this one left off or the chain has a gap.
		if i >= len(starts) || starts[i] != cursor {
			return nil, false
		}
		i++
	}
	return nil, false
}

// touch moves entry to the MRU end and refreshes its timestamp, but only
// if at least 10s have passed since the last write, to keep the index
// from churning on every read (spec §4.3 "update timestamp only if >=10s
// since last write").
func (idx *index) touch(entry *indexEntry, now time.Time) {
	idx.moveToFront(entry)
	if now.Sub(entry.lastAccess) >= 10*time.Second {
		entry.lastAccess = now
	}
}

// insert adds or replaces the entry at key, updating the running total
// and the per-key sorted start list.
func (idx *index) insert(key chunkKey, size int64, now time.Time) {
	if old, exists := idx.entries[key]; exists {
		idx.removeEntry(old)
	}
	entry := &indexEntry{key: key, size: size, lastAccess: now}
	idx.addToFront(entry)
	idx.entries[key] = entry
	idx.total += size
	idx.insertStart(key.cacheKey, key.start)
}

func (idx *index) insertStart(cacheKey string, start int64) {
	starts := idx.perKey[cacheKey]
	i := sort.Search(len(starts), func(i int) bool { return starts[i] >= start })
	if i < len(starts) && starts[i] == start {
		return
	}
	starts = append(starts, 0)
	copy(starts[i+1:], starts[i:])
	starts[i] = start
	idx.perKey[cacheKey] = starts
}

func (idx *index) removeStart(cacheKey string, start int64) {
	starts := idx.perKey[cacheKey]
	i := sort.Search(len(starts), func(i int) bool { return starts[i] >= start })
	if i >= len(starts) || starts[i] != start {
		return
	}
	starts = append(starts[:i], starts[i+1:]...)
	if len(starts) == 0 {
		delete(idx.perKey, cacheKey)
	} else {
		idx.perKey[cacheKey] = starts
	}
}

// removeEntry drops an entry from the list, map, total, and per-key
// start list. Does not delete the backing file — callers that need that
// call os.Remove themselves (eviction does; a cold index rebuild does not).
func (idx *index) removeEntry(entry *indexEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(idx.entries, entry.key)
	idx.total -= entry.size
	idx.removeStart(entry.key.cacheKey, entry.key.start)
}

func (idx *index) addToFront(entry *indexEntry) {
	entry.prev = idx.head
	entry.next = idx.head.next
	idx.head.next.prev = entry
	idx.head.next = entry
}

func (idx *index) moveToFront(entry *indexEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	idx.addToFront(entry)
}

// oldest returns the LRU entry, or nil if the index is empty.
func (idx *index) oldest() *indexEntry {
	if idx.tail.prev == idx.head {
		return nil
	}
	return idx.tail.prev
}

// expired returns entries older than idx.ttl as of now, oldest first.
func (idx *index) expired(now time.Time) []*indexEntry {
	var out []*indexEntry
	for e := idx.tail.prev; e != idx.head; e = e.prev {
		if now.Sub(e.lastAccess) > idx.ttl {
			out = append(out, e)
		}
	}
	return out
}

func (idx *index) reset() {
	idx.entries = make(map[chunkKey]*indexEntry)
	idx.perKey = make(map[string][]int64)
	idx.total = 0
	idx.head.next = idx.tail
	idx.tail.prev = idx.head
}
