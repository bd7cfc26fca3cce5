// Package config holds cascade's read-mostly, rarely-updated tunables:
// values assigned once at startup (or occasionally via a config reload) and
// read without further locking on every hot path.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

// readMostly mirrors aistore's cmn.readMostly/Rom pattern: a single
// process-wide value, set once via Set, read via plain accessor methods.
type readMostly struct {
	window        int           // WINDOW: max rows per output chunk
	shardBits     int           // SHARD_BITS: 1<<shardBits block-cache shards
	cacheCapacity int64         // BlockCache capacity, bytes
	poolSize      int           // reserved entry-struct object pool size
	hkInterval    time.Duration // blockcache/hk: shard-stats logging interval
}

// Rom is the global read-mostly config, analogous to aistore's cmn.Rom.
var Rom = readMostly{
	window:        1024,
	shardBits:     6, // 1<<6 == 64 shards
	cacheCapacity: 1 << 30,
	poolSize:      1024,
	hkInterval:    30 * time.Second,
}

func (r *readMostly) Window() int                    { return r.window }
func (r *readMostly) ShardBits() int                  { return r.shardBits }
func (r *readMostly) ShardCount() int                 { return 1 << r.shardBits }
func (r *readMostly) CacheCapacity() int64            { return r.cacheCapacity }
func (r *readMostly) PoolSize() int                   { return r.poolSize }
func (r *readMostly) HKInterval() time.Duration       { return r.hkInterval }

// overrides is the subset of Rom a deployment may customize; all fields
// optional, decoded with jsoniter the way cos.FsID decodes its JSON form.
type overrides struct {
	Window        *int    `json:"window,omitempty"`
	ShardBits     *int    `json:"shard_bits,omitempty"`
	CacheCapacity *int64  `json:"cache_capacity,omitempty"`
	PoolSize      *int    `json:"pool_size,omitempty"`
	HKIntervalSec *int    `json:"hk_interval_sec,omitempty"`
}

// Set applies a JSON-encoded override blob on top of the defaults. Called
// once at startup; not safe to call concurrently with readers mutating it
// mid-flight (same contract as aistore's readMostly.Set).
func Set(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var ov overrides
	if err := json.Unmarshal(raw, &ov); err != nil {
		return err
	}
	if ov.Window != nil {
		Rom.window = *ov.Window
	}
	if ov.ShardBits != nil {
		Rom.shardBits = *ov.ShardBits
	}
	if ov.CacheCapacity != nil {
		Rom.cacheCapacity = *ov.CacheCapacity
	}
	if ov.PoolSize != nil {
		Rom.poolSize = *ov.PoolSize
	}
	if ov.HKIntervalSec != nil {
		Rom.hkInterval = time.Duration(*ov.HKIntervalSec) * time.Second
	}
	return nil
}
