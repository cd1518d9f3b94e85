// Package cache is the chunked on-disk block cache backing VFS reads
// (spec §4.3). Eviction bookkeeping is grounded on
// tomtom215-cartographus/internal/cache/lru.go's intrusive doubly-linked
// list; the on-disk path scheme generalizes
// snapetech-plexTuner/internal/cache/path.go's "stable path for a key"
// idea to a two-level hex fan-out directory of per-chunk files.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// chunkPath returns the on-disk location of the chunk starting at start
// for cacheKey: dir/xx/<sha1(cacheKey|start)>. The fan-out directory
// keeps any one directory from holding more entries than common
// filesystems handle well under heavy churn.
func chunkPath(dir, cacheKey string, start int64) string {
	digest := chunkDigest(cacheKey, start)
	return filepath.Join(dir, digest[:2], digest)
}

func chunkDigest(cacheKey string, start int64) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%d", cacheKey, start)
	return hex.EncodeToString(h.Sum(nil))
}
