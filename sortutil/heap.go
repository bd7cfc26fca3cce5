package sortutil

import (
	"container/heap"

	"github.com/cascadedb/cascade/columnar"
)

// HeapElem is one source's current row cursor: the chunk it was read from,
// the visible row within that chunk, and which source it came from. The
// merge-sort exchange keeps exactly one HeapElem per not-yet-exhausted
// source in the heap at any time.
type HeapElem struct {
	SourceIdx int
	Chunk     *columnar.Chunk
	RowIdx    int
}

// minHeap orders HeapElems by the shared OrderingSpec, breaking ties by
// SourceIdx ascending so that merge output is deterministic even when two
// sources produce byte-identical rows.
type minHeap struct {
	elems []*HeapElem
	order OrderingSpec
}

func (h minHeap) Len() int { return len(h.elems) }

func (h minHeap) Less(i, j int) bool {
	a, b := h.elems[i], h.elems[j]
	c := h.order.Compare(a.Chunk, a.RowIdx, b.Chunk, b.RowIdx)
	if c != 0 {
		return c < 0
	}
	return a.SourceIdx < b.SourceIdx
}

func (h minHeap) Swap(i, j int) { h.elems[i], h.elems[j] = h.elems[j], h.elems[i] }

func (h *minHeap) Push(x any) { h.elems = append(h.elems, x.(*HeapElem)) }

func (h *minHeap) Pop() any {
	old := h.elems
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.elems = old[:n-1]
	return e
}

// Heap is a min-heap of HeapElems ordered by an OrderingSpec, the structure
// the merge-sort exchange pops from on every output row.
type Heap struct {
	h minHeap
}

// NewHeap returns an empty Heap ordered by order.
func NewHeap(order OrderingSpec) *Heap {
	return &Heap{h: minHeap{order: order}}
}

// Len returns the number of cursors currently in the heap.
func (hp *Heap) Len() int { return hp.h.Len() }

// Push inserts a new source cursor into the heap.
func (hp *Heap) Push(e *HeapElem) { heap.Push(&hp.h, e) }

// Pop removes and returns the globally-smallest cursor.
func (hp *Heap) Pop() *HeapElem {
	return heap.Pop(&hp.h).(*HeapElem)
}

// Peek returns the globally-smallest cursor without removing it, or nil if
// the heap is empty.
func (hp *Heap) Peek() *HeapElem {
	if hp.h.Len() == 0 {
		return nil
	}
	return hp.h.elems[0]
}
