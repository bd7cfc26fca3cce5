package blockcache

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
)

// seed is a fixed constant seeding every xxhash digest this package
// computes, local to the cache key space.
const seed = 0x445b92c

// HashKey computes the 64-bit hash used to route a Key to one of
// 1<<SHARD_BITS shards, via xxhash.Checksum64S for fast, non-crypto
// key hashing.
func HashKey(k Key) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], k.SSTID)
	binary.LittleEndian.PutUint64(buf[8:16], k.BlockIdx)
	return xxhash.Checksum64S(buf[:], seed)
}
