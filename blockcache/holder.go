package blockcache

import "sync/atomic"

// BlockHolder is a uniform read-only handle over a Block, whether owned
// exclusively or backed by a pinned cache entry. While a
// BlockHolder is live, the underlying Block's bytes are stable and, for a
// cached block, the entry is pinned against eviction.
type BlockHolder struct {
	block *Block

	shard    *LruShard // nil for an owned block
	entry    *entry
	released atomic.Bool
}

// FromOwnedBlock wraps a block the caller already owns exclusively (no
// cache, no pin to release).
func FromOwnedBlock(b *Block) *BlockHolder {
	return &BlockHolder{block: b}
}

func newCachedHolder(shard *LruShard, e *entry) *BlockHolder {
	return &BlockHolder{block: e.value, shard: shard, entry: e}
}

// Block dereferences the holder, yielding the immutable Block it pins.
func (h *BlockHolder) Block() *Block { return h.block }

// Release drops the holder's pin on the underlying cache entry. A no-op
// for owned blocks, and idempotent: calling it more than once only unpins
// once, since a live handle must never be double-released into negative
// refcount.
func (h *BlockHolder) Release() {
	if h.shard == nil {
		return
	}
	if h.released.CompareAndSwap(false, true) {
		h.shard.Release(h.entry)
	}
}
