package sortutil

import (
	"testing"

	"github.com/cascadedb/cascade/columnar"
)

func schemaID() columnar.Schema {
	return columnar.Schema{Fields: []columnar.Field{{Name: "id", Type: columnar.Int32}}}
}

func chunkOf(t *testing.T, ids ...int32) *columnar.Chunk {
	t.Helper()
	b := columnar.NewBuilder(schemaID(), len(ids))
	src := columnar.NewChunk(schemaID(), []columnar.Column{{Type: columnar.Int32, I32: ids}}, len(ids))
	for i := range ids {
		b.AppendRow(src, i)
	}
	return b.Finish()
}

func asc() OrderingSpec {
	return OrderingSpec{Keys: []SortKey{{ColumnIdx: 0, Dir: Asc}}}
}

func TestHeapPopsGlobalMinimum(t *testing.T) {
	h := NewHeap(asc())
	c1 := chunkOf(t, 5, 9)
	c2 := chunkOf(t, 1, 7)

	h.Push(&HeapElem{SourceIdx: 0, Chunk: c1, RowIdx: 0})
	h.Push(&HeapElem{SourceIdx: 1, Chunk: c2, RowIdx: 0})

	e := h.Pop()
	if e.SourceIdx != 1 || e.Chunk.Columns[0].Int32At(e.RowIdx) != 1 {
		t.Fatalf("expected source 1's row (value 1) first, got source %d value %d",
			e.SourceIdx, e.Chunk.Columns[0].Int32At(e.RowIdx))
	}

	e = h.Pop()
	if e.SourceIdx != 0 || e.Chunk.Columns[0].Int32At(e.RowIdx) != 5 {
		t.Fatalf("expected source 0's row (value 5) next, got source %d value %d",
			e.SourceIdx, e.Chunk.Columns[0].Int32At(e.RowIdx))
	}
}

func TestHeapTieBreaksBySourceIdxAscending(t *testing.T) {
	h := NewHeap(asc())
	c1 := chunkOf(t, 3)
	c2 := chunkOf(t, 3)

	h.Push(&HeapElem{SourceIdx: 2, Chunk: c2, RowIdx: 0})
	h.Push(&HeapElem{SourceIdx: 1, Chunk: c1, RowIdx: 0})

	e := h.Pop()
	if e.SourceIdx != 1 {
		t.Fatalf("expected lower SourceIdx to break tie, got source %d", e.SourceIdx)
	}
}

func TestHeapDescendingOrder(t *testing.T) {
	order := OrderingSpec{Keys: []SortKey{{ColumnIdx: 0, Dir: Desc}}}
	h := NewHeap(order)
	c1 := chunkOf(t, 2)
	c2 := chunkOf(t, 9)

	h.Push(&HeapElem{SourceIdx: 0, Chunk: c1, RowIdx: 0})
	h.Push(&HeapElem{SourceIdx: 1, Chunk: c2, RowIdx: 0})

	e := h.Pop()
	if e.SourceIdx != 1 {
		t.Fatalf("descending order should pop value 9 first, got source %d", e.SourceIdx)
	}
}

func TestHeapPeekDoesNotRemove(t *testing.T) {
	h := NewHeap(asc())
	h.Push(&HeapElem{SourceIdx: 0, Chunk: chunkOf(t, 4), RowIdx: 0})

	if h.Peek() == nil {
		t.Fatalf("Peek() on non-empty heap returned nil")
	}
	if h.Len() != 1 {
		t.Fatalf("Peek() should not remove the element, Len() = %d", h.Len())
	}
}

func TestHeapEmptyPeek(t *testing.T) {
	h := NewHeap(asc())
	if h.Peek() != nil {
		t.Fatalf("Peek() on empty heap should return nil")
	}
}
