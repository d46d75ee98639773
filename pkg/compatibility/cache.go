package compatibility

import (
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/schemaforge/registry-core/pkg/model"
)

// cacheKey identifies one (new, old, mode) comparison. Entries are
// immutable once inserted.
type cacheKey struct {
	newHash string
	oldHash string
	mode    model.CompatibilityMode
}

func (k cacheKey) String() string {
	return string(k.mode) + "|" + k.newHash + "|" + k.oldHash
}

type cacheEntry struct {
	violations []model.Violation
	expiresAt  time.Time
}

// resultCache is a sharded, TTL-bounded LRU. Each shard is an independent
// lock so writers to different shards proceed in parallel; within a
// shard, concurrent misses on the same key coalesce through group.
type resultCache struct {
	shards []*cacheShard
	group  singleflight.Group
	ttl    time.Duration
}

type cacheShard struct {
	mu  sync.Mutex
	lru *lru.Cache[cacheKey, cacheEntry]
}

func newResultCache(numShards, perShardSize int, ttl time.Duration) *resultCache {
	if numShards <= 0 {
		numShards = 1
	}
	if perShardSize <= 0 {
		perShardSize = 256
	}
	rc := &resultCache{ttl: ttl}
	rc.shards = make([]*cacheShard, numShards)
	for i := range rc.shards {
		c, _ := lru.New[cacheKey, cacheEntry](perShardSize)
		rc.shards[i] = &cacheShard{lru: c}
	}
	return rc
}

func (rc *resultCache) shardFor(key cacheKey) *cacheShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return rc.shards[h.Sum32()%uint32(len(rc.shards))]
}

func (rc *resultCache) get(key cacheKey) ([]model.Violation, bool) {
	shard := rc.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.lru.Get(key)
	if !ok {
		return nil, false
	}
	if rc.ttl > 0 && time.Now().After(entry.expiresAt) {
		shard.lru.Remove(key)
		return nil, false
	}
	return entry.violations, true
}

func (rc *resultCache) put(key cacheKey, violations []model.Violation) {
	shard := rc.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	expiresAt := time.Now().Add(rc.ttl)
	if rc.ttl <= 0 {
		expiresAt = time.Now().Add(365 * 24 * time.Hour)
	}
	shard.lru.Add(key, cacheEntry{violations: violations, expiresAt: expiresAt})
}
