package blockcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/cascadedb/cascade/blockcache"
)

var _ = Describe("BlockCache single-flight", func() {
	var cache *blockcache.BlockCache

	BeforeEach(func() {
		cache = blockcache.New(10 << 20)
	})

	It("coalesces concurrent misses onto one loader call", func() {
		var calls int32
		loader := func(ctx context.Context, k blockcache.Key) (*blockcache.Block, int64, error) {
			atomic.AddInt32(&calls, 1)
			return &blockcache.Block{Data: []byte("v")}, 1, nil
		}

		const n = 64
		var wg sync.WaitGroup
		holders := make([]*blockcache.BlockHolder, n)
		wg.Add(n)
		for i := 0; i < n; i++ {
			i := i
			go func() {
				defer wg.Done()
				h, err := cache.GetOrInsertWith(context.Background(), blockcache.Key{SSTID: 1, BlockIdx: 1}, loader)
				Expect(err).NotTo(HaveOccurred())
				holders[i] = h
			}()
		}
		wg.Wait()

		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
		for _, h := range holders {
			Expect(h.Block().Data).To(Equal([]byte("v")))
			h.Release()
		}
	})

	It("does not poison the key after a loader failure", func() {
		failErr := errors.New("loader exploded")
		fail := func(ctx context.Context, k blockcache.Key) (*blockcache.Block, int64, error) {
			return nil, 0, failErr
		}

		const n = 10
		var wg sync.WaitGroup
		errs := make([]error, n)
		wg.Add(n)
		for i := 0; i < n; i++ {
			i := i
			go func() {
				defer wg.Done()
				_, err := cache.GetOrInsertWith(context.Background(), blockcache.Key{SSTID: 2, BlockIdx: 2}, fail)
				errs[i] = err
			}()
		}
		wg.Wait()

		for _, err := range errs {
			Expect(err).To(HaveOccurred())
		}

		var calls int32
		ok := func(ctx context.Context, k blockcache.Key) (*blockcache.Block, int64, error) {
			atomic.AddInt32(&calls, 1)
			return &blockcache.Block{Data: []byte("recovered")}, 1, nil
		}
		h, err := cache.GetOrInsertWith(context.Background(), blockcache.Key{SSTID: 2, BlockIdx: 2}, ok)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(int32(1)))
		h.Release()
	})

	It("gives every waiter a handle to the same bytes, never re-running the loader", func() {
		loader := func(ctx context.Context, k blockcache.Key) (*blockcache.Block, int64, error) {
			return &blockcache.Block{Data: []byte("shared")}, 6, nil
		}
		h1, err := cache.GetOrInsertWith(context.Background(), blockcache.Key{SSTID: 3, BlockIdx: 0}, loader)
		Expect(err).NotTo(HaveOccurred())
		defer h1.Release()

		h2, ok := cache.Get(blockcache.Key{SSTID: 3, BlockIdx: 0})
		Expect(ok).To(BeTrue())
		defer h2.Release()
		Expect(h2.Block()).To(Equal(h1.Block()))
	})
})
