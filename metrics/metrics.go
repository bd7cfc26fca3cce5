// Package metrics instruments both cores with a small registry of named
// counters and latencies, registered once at startup and updated on every
// call, against Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups every counter/histogram either core touches. A nil
// *Registry is valid and every method on it is a no-op, so callers that
// don't care about metrics can pass one around without a nil check at
// every call site (the same shape as passing a nil logger).
type Registry struct {
	ChunksProduced   prometheus.Counter
	RowsMerged       prometheus.Counter
	SourceErrors     *prometheus.CounterVec // label: source_idx
	ChunkCardinality prometheus.Histogram

	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	SingleFlightHit prometheus.Counter // waiter coalesced onto an in-flight load
	LoaderErrors    prometheus.Counter
	LoaderLatency   prometheus.Histogram
}

// NewRegistry constructs and registers every metric against reg. Passing a
// fresh prometheus.NewRegistry() keeps tests hermetic; passing
// prometheus.DefaultRegisterer wires into the process-wide exporter the way
// aistore's runner.reg does for its own Tracker.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ChunksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "exchange", Name: "chunks_produced_total",
			Help: "total number of output chunks produced by the merge-sort exchange",
		}),
		RowsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "exchange", Name: "rows_merged_total",
			Help: "total number of rows appended across all output chunks",
		}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "exchange", Name: "source_errors_total",
			Help: "total number of TakeData failures, by source index",
		}, []string{"source_idx"}),
		ChunkCardinality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cascade", Subsystem: "exchange", Name: "chunk_cardinality",
			Help:    "distribution of output chunk row counts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "hits_total",
			Help: "total number of cache lookups resolved without a loader call",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "misses_total",
			Help: "total number of cache lookups that became the designated loader",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "evictions_total",
			Help: "total number of unpinned entries evicted to stay within capacity",
		}),
		SingleFlightHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "single_flight_coalesced_total",
			Help: "total number of callers that waited on someone else's in-flight load",
		}),
		LoaderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "loader_errors_total",
			Help: "total number of loader failures observed by the designated loader",
		}),
		LoaderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cascade", Subsystem: "blockcache", Name: "loader_latency_seconds",
			Help:    "latency of loader calls on the designated-loader path",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChunksProduced, m.RowsMerged, m.SourceErrors, m.ChunkCardinality,
			m.CacheHits, m.CacheMisses, m.CacheEvictions, m.SingleFlightHit,
			m.LoaderErrors, m.LoaderLatency,
		)
	}
	return m
}

func (m *Registry) observeChunk(cardinality int) {
	if m == nil {
		return
	}
	m.ChunksProduced.Inc()
	m.RowsMerged.Add(float64(cardinality))
	m.ChunkCardinality.Observe(float64(cardinality))
}

// ObserveChunk records one MergeSortExchange.Next() result. Safe on a nil
// *Registry.
func (m *Registry) ObserveChunk(cardinality int) { m.observeChunk(cardinality) }

// ObserveSourceError records a TakeData failure for sourceIdx. Safe on a
// nil *Registry.
func (m *Registry) ObserveSourceError(sourceIdx int) {
	if m == nil {
		return
	}
	m.SourceErrors.WithLabelValues(strconv.Itoa(sourceIdx)).Inc()
}

// ObserveCacheHit/ObserveCacheMiss/ObserveSingleFlightWait record which
// branch of BlockCache.GetOrInsertWith a caller landed in. Safe on a nil
// *Registry.
func (m *Registry) ObserveCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Registry) ObserveCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Registry) ObserveSingleFlightWait() {
	if m != nil {
		m.SingleFlightHit.Inc()
	}
}

// ObserveEviction records one unpinned entry evicted to stay within a
// shard's byte budget. Safe on a nil *Registry.
func (m *Registry) ObserveEviction() {
	if m != nil {
		m.CacheEvictions.Inc()
	}
}

// ObserveLoaderResult records one designated-loader run's latency and,
// on failure, increments the loader-error counter. Safe on a nil
// *Registry.
func (m *Registry) ObserveLoaderResult(latency time.Duration, err error) {
	if m == nil {
		return
	}
	m.LoaderLatency.Observe(latency.Seconds())
	if err != nil {
		m.LoaderErrors.Inc()
	}
}
