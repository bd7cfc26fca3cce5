package hk_test

import (
	"time"

	"github.com/cascadedb/cascade/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	It("fires a registered callback after its delay", func() {
		fired := make(chan struct{}, 1)
		hk.DefaultHK.Register("once", func() time.Duration {
			fired <- struct{}{}
			return 0 // unregister after firing
		}, time.Millisecond)

		Eventually(fired, time.Second).Should(Receive())
	})

	It("reschedules a callback that returns a positive delay", func() {
		count := make(chan struct{}, 8)
		hk.DefaultHK.Register("periodic", func() time.Duration {
			count <- struct{}{}
			return 2 * time.Millisecond
		}, time.Millisecond)

		Eventually(func() int { return len(count) }, time.Second).Should(BeNumerically(">=", 3))
		hk.DefaultHK.Unregister("periodic")
	})

	It("does not fire an unregistered callback", func() {
		fired := make(chan struct{}, 1)
		hk.DefaultHK.Register("cancel-me", func() time.Duration {
			fired <- struct{}{}
			return time.Millisecond
		}, 10*time.Millisecond)
		hk.DefaultHK.Unregister("cancel-me")

		Consistently(fired, 50*time.Millisecond).ShouldNot(Receive())
	})
})
