// Package columnar implements cascade's immutable columnar batch type and
// its builders.
package columnar

import "math/bits"

// bitset is a flat, word-packed bit vector used for both the null bitmap
// and the per-row visibility bitmap, sized dynamically since row counts
// vary per chunk.
type bitset struct {
	words []uint64
	n     int // number of valid bits
}

func newBitset(n int, allSet bool) bitset {
	bs := bitset{words: make([]uint64, (n+63)/64), n: n}
	if allSet {
		bs.setRange(0, n)
	}
	return bs
}

func (b *bitset) setRange(from, to int) {
	for i := from; i < to; i++ {
		b.set(i)
	}
}

func (b *bitset) set(i int)   { b.words[i/64] |= 1 << uint(i%64) }
func (b *bitset) clear(i int) { b.words[i/64] &^= 1 << uint(i%64) }

func (b *bitset) get(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.words[i/64]&(1<<uint(i%64)) != 0
}

// count returns the number of set bits.
func (b *bitset) count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// nextSet returns the first set bit at index >= start, or (-1, false).
func (b *bitset) nextSet(start int) (int, bool) {
	if start < 0 {
		start = 0
	}
	for i := start; i < b.n; i++ {
		if b.get(i) {
			return i, true
		}
	}
	return -1, false
}

// ExportWords returns the bitset's underlying words, for wire encoding by
// exchange/remote. Exposed as a method on Column rather than bitset itself
// so callers outside the package never need the unexported type name.
func (c *Column) ExportWords() []uint64 { return c.Nulls.words }

// ImportWords rebuilds a null bitmap of n bits from words produced by
// ExportWords, the decode-side counterpart used by exchange/remote.
func ImportWords(words []uint64, n int) bitset {
	bs := newBitset(n, false)
	copy(bs.words, words)
	return bs
}
