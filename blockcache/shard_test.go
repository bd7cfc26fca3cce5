package blockcache

import "testing"

func TestLruShardEvictsUnpinnedLRUFirst(t *testing.T) {
	s := newLruShard(20, nil)
	a := s.Insert(Key{SSTID: 1, BlockIdx: 1}, 1, 10, &Block{Data: []byte("a")})
	b := s.Insert(Key{SSTID: 1, BlockIdx: 2}, 2, 10, &Block{Data: []byte("b")})
	s.Release(a) // unpin a; insertion order already makes list MRU->LRU [b, a]
	s.Release(b) // unpin b; order unaffected, unpin never reorders the list

	// Inserting c (pinned) leaves unpinned usage at 20; releasing it pushes
	// usage to 30 > capacity 20, which evicts from the tail: a (least
	// recently touched among unpinned entries).
	c := s.Insert(Key{SSTID: 1, BlockIdx: 3}, 3, 10, &Block{Data: []byte("c")})
	s.Release(c)

	if s.m[a.key] != nil {
		t.Fatalf("a (LRU, unpinned) should have been evicted")
	}
	if s.m[b.key] == nil {
		t.Fatalf("b (MRU, unpinned) should still be resident")
	}
}

func TestLruShardNeverEvictsPinnedEntry(t *testing.T) {
	s := newLruShard(10, nil)
	e := s.Insert(Key{SSTID: 1, BlockIdx: 1}, 1, 10, &Block{Data: []byte("a")})
	// e stays pinned (refcount 1, never released) while eviction pressure
	// builds from other, unpinned entries.
	for i := uint64(0); i < 5; i++ {
		other := s.Insert(Key{SSTID: 2, BlockIdx: i}, i+100, 10, &Block{Data: []byte("x")})
		s.Release(other)
	}
	if s.m[e.key] == nil {
		t.Fatalf("pinned entry was evicted")
	}
}

func TestLruShardLookupForRequestStates(t *testing.T) {
	s := newLruShard(1<<20, nil)
	k := Key{SSTID: 9, BlockIdx: 9}

	kind, _, pend := s.LookupForRequest(1, k)
	if kind != Miss || pend == nil {
		t.Fatalf("first lookup should be Miss with a pending entry")
	}

	kind2, _, pend2 := s.LookupForRequest(1, k)
	if kind2 != WaitPending || pend2 != pend {
		t.Fatalf("second concurrent lookup should observe the same pending entry")
	}

	e := s.Insert(k, 1, 4, &Block{Data: []byte("v")})

	kind3, e3, _ := s.LookupForRequest(1, k)
	if kind3 != CachedHit || e3 != e {
		t.Fatalf("lookup after insert should be a cached hit on the inserted entry")
	}
	if _, pending := s.pending[k]; pending {
		t.Fatalf("resident key must not remain in the pending table")
	}
}

func TestLruShardClearPendingRequestSignalsFailure(t *testing.T) {
	s := newLruShard(1<<20, nil)
	k := Key{SSTID: 1, BlockIdx: 1}
	_, _, pend := s.LookupForRequest(1, k)

	done := make(chan error, 1)
	go func() {
		<-pend.ch
		done <- pend.err
	}()

	boom := errDummy{}
	s.ClearPendingRequest(k, boom)
	if err := <-done; err != boom {
		t.Fatalf("waiter observed %v, want %v", err, boom)
	}
	if _, ok := s.pending[k]; ok {
		t.Fatalf("pending table should be empty after ClearPendingRequest")
	}
}

// A second Insert for an already-resident key must not corrupt the shard:
// the stale entry is detached from the map and list rather than silently
// shadowed, and a holder still pinning it releases that exact entry
// without touching the new one's refcount.
func TestLruShardInsertOverwritesStaleEntryCleanly(t *testing.T) {
	s := newLruShard(1<<20, nil)
	k := Key{SSTID: 4, BlockIdx: 4}

	first := s.Insert(k, 1, 10, &Block{Data: []byte("first")})
	second := s.Insert(k, 1, 10, &Block{Data: []byte("second")})

	if s.m[k] != second {
		t.Fatalf("s.m[k] should point at the newest entry")
	}
	if first == second {
		t.Fatalf("second Insert should not reuse the first entry")
	}

	// The stale entry is unreachable from the shard but still releasable
	// by the pointer a caller is holding; this must not touch second's
	// refcount.
	s.Release(first)
	if second.refcount != 1 {
		t.Fatalf("releasing the stale entry changed the live entry's refcount: %d", second.refcount)
	}

	s.Release(second)
	if second.refcount != 0 {
		t.Fatalf("second entry should be unpinned after its own Release")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
