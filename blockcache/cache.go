package blockcache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/cascadedb/cascade/cmn/config"
	"github.com/cascadedb/cascade/cmn/nlog"
	"github.com/cascadedb/cascade/hk"
	"github.com/cascadedb/cascade/metrics"
)

// Loader is the caller-supplied asynchronous computation GetOrInsertWith
// runs on a true cache miss, yielding an owned Block plus its accounting
// charge in bytes.
type Loader func(ctx context.Context, key Key) (block *Block, charge int64, err error)

// BlockCache is the single-flight cache facade routing requests to one of
// 1<<SHARD_BITS independently-locked LruShards.
type BlockCache struct {
	shards    []*LruShard
	shardMask uint64
	metrics   *metrics.Registry
}

// WithMetrics attaches a metrics.Registry that Get/Insert/GetOrInsertWith
// observe hits, misses, evictions, single-flight coalescing, and loader
// latency/errors through. Optional: nil leaves the cache unobserved.
func (c *BlockCache) WithMetrics(reg *metrics.Registry) *BlockCache {
	c.metrics = reg
	for _, s := range c.shards {
		s.metrics = reg
	}
	return c
}

// New constructs a BlockCache with the given total byte capacity, split
// evenly across config.Rom.ShardCount() shards.
func New(capacityBytes int64) *BlockCache {
	n := config.Rom.ShardCount()
	perShard := capacityBytes / int64(n)
	shards := make([]*LruShard, n)
	for i := range shards {
		shards[i] = newLruShard(perShard, nil)
	}
	return &BlockCache{shards: shards, shardMask: uint64(n - 1)}
}

func (c *BlockCache) shardFor(hash uint64) *LruShard {
	return c.shards[hash&c.shardMask]
}

// Get is a pure lookup: it never triggers a load. Returns (nil, false) on
// a miss.
func (c *BlockCache) Get(key Key) (*BlockHolder, bool) {
	hash := HashKey(key)
	shard := c.shardFor(hash)
	e := shard.Lookup(hash, key)
	if e == nil {
		return nil, false
	}
	return newCachedHolder(shard, e), true
}

// Insert admits a pre-loaded block, returning a pinned holder over it.
func (c *BlockCache) Insert(key Key, block *Block, charge int64) *BlockHolder {
	hash := HashKey(key)
	shard := c.shardFor(hash)
	e := shard.Insert(key, hash, charge, block)
	return newCachedHolder(shard, e)
}

// GetOrInsertWith implements the single-flight state machine: at most one
// loader is ever in flight per key across the whole process;
// concurrent callers for the same key coalesce onto the designated
// loader's result.
func (c *BlockCache) GetOrInsertWith(ctx context.Context, key Key, loader Loader) (*BlockHolder, error) {
	if loader == nil {
		return nil, errEmptyLoader
	}
	hash := HashKey(key)
	shard := c.shardFor(hash)

	kind, e, pend := shard.LookupForRequest(hash, key)
	switch kind {
	case CachedHit:
		c.metrics.ObserveCacheHit()
		return newCachedHolder(shard, e), nil
	case WaitPending:
		c.metrics.ObserveSingleFlightWait()
		return c.awaitPending(shard, key, pend)
	}

	// Miss: this caller is the designated loader.
	c.metrics.ObserveCacheMiss()
	start := time.Now()
	block, charge, err := loader(ctx, key)
	c.metrics.ObserveLoaderResult(time.Since(start), err)
	if err != nil {
		shard.ClearPendingRequest(key, err)
		return nil, &LoaderError{Key: key, cause: err}
	}
	result := shard.Insert(key, hash, charge, block)
	return newCachedHolder(shard, result), nil
}

func (c *BlockCache) awaitPending(shard *LruShard, key Key, pend *pendingEntry) (*BlockHolder, error) {
	<-pend.ch
	if pend.err != nil {
		return nil, &WaiterError{Key: key, cause: pend.err}
	}
	// result was pinned once on behalf of the designated loader; every
	// waiter needs its own pin so the entry stays alive for as long as any
	// one of them holds a BlockHolder over it.
	shard.mu.Lock()
	shard.pin(pend.result)
	shard.mu.Unlock()
	return newCachedHolder(shard, pend.result), nil
}

// Clear empties every shard, test-only. Not safe to call while
// requests are outstanding.
func (c *BlockCache) Clear() {
	for _, s := range c.shards {
		s.Clear()
	}
}

// ShardCount returns the number of shards, exercised by tests asserting
// routing behavior.
func (c *BlockCache) ShardCount() int { return len(c.shards) }

// WarmUp concurrently pre-populates the cache with keys, each via loader,
// ahead of serving traffic. Errors from individual keys are collected and
// returned together; a failure on one key does not cancel the others (a
// plain WaitGroup fan-out, not errgroup.Group, since errgroup cancels its
// derived context on the first error and would abort sibling loads still
// in flight).
func (c *BlockCache) WarmUp(ctx context.Context, keys []Key, loader Loader) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	wg.Add(len(keys))
	for _, key := range keys {
		key := key
		go func() {
			defer wg.Done()
			holder, err := c.GetOrInsertWith(ctx, key, loader)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			holder.Release()
		}()
	}
	wg.Wait()
	if len(errs) == 0 {
		return nil
	}
	return errors.Errorf("blockcache: WarmUp failed for %d/%d keys, first error: %v", len(errs), len(keys), errs[0])
}

// StartHousekeeping registers a periodic logger that reports each shard's
// running hit/miss/eviction counters through cmn/nlog. Returns the
// housekeeper name so tests can Unregister it.
func (c *BlockCache) StartHousekeeping(name string) string {
	hk.RegisterLogger(name, config.Rom.HKInterval(), func() {
		for i, s := range c.shards {
			hits, misses, evictions := s.Stats()
			if hits+misses == 0 {
				continue
			}
			nlog.Infof("blockcache: shard %d hits=%d misses=%d evictions=%d unpinned=%dB",
				i, hits, misses, evictions, s.UnpinnedCharge())
		}
	})
	return name
}

var errEmptyLoader = errors.New("blockcache: loader must not be nil")
