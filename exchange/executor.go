package exchange

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cascadedb/cascade/cmn/config"
	"github.com/cascadedb/cascade/cmn/debug"
	"github.com/cascadedb/cascade/cmn/nlog"
	"github.com/cascadedb/cascade/columnar"
	"github.com/cascadedb/cascade/metrics"
	"github.com/cascadedb/cascade/sortutil"
)

// Executor is the external interface every exchange implementation
// exposes: open, pull successive chunks, close, and report the downstream
// schema. Implementations must tolerate Next being called
// repeatedly; once it returns (nil, nil) or after Close, further calls are
// undefined.
type Executor interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (*columnar.Chunk, error)
	Close() error
	Schema() columnar.Schema
}

// sourceState tracks one source's live state: the descriptor it is created
// from, the source itself (nil until the first Next creates it), and
// whether it has reported end-of-stream.
type sourceState struct {
	desc      SourceDescriptor
	source    ExchangeSource
	exhausted bool
}

// MergeSortExchange is a k-way merge executor pulling sorted chunks from N
// remote shuffle sources and re-assembling them into a single
// globally-sorted stream of fixed-size columnar batches.
type MergeSortExchange struct {
	plan       *PlanNode
	newSource  CreateSource
	window     int
	mu        sync.Mutex // guards opened/closed/exhausted/didInit transitions, not the single-threaded next() body
	opened    bool
	closed    bool
	exhausted bool
	didInit   bool
	sources   []sourceState
	heap      *sortutil.Heap
	metrics   *metrics.Registry
}

// WithMetrics attaches a metrics.Registry that Next observes every output
// chunk and source error through. Optional: a MergeSortExchange with no
// registry attached behaves identically, just unobserved.
func (m *MergeSortExchange) WithMetrics(reg *metrics.Registry) *MergeSortExchange {
	m.metrics = reg
	return m
}

// NewMergeSortExchange constructs an executor from a decoded plan node and
// an injected source factory. The plan's source list must be non-empty;
// DecodePlanNode already enforces this, but a directly-constructed PlanNode
// is re-checked here too.
func NewMergeSortExchange(plan *PlanNode, newSource CreateSource) (*MergeSortExchange, error) {
	if len(plan.Sources) == 0 {
		return nil, newValidationError("cannot build MergeSortExchange with zero sources")
	}
	window := plan.Window
	if window <= 0 {
		window = config.Rom.Window()
	}
	sources := make([]sourceState, len(plan.Sources))
	for i, d := range plan.Sources {
		sources[i] = sourceState{desc: d}
	}
	return &MergeSortExchange{
		plan:      plan,
		newSource: newSource,
		window:    window,
		sources:   sources,
		heap:      sortutil.NewHeap(plan.Ordering),
	}, nil
}

// Schema returns the merge's output schema, the plan's declared input
// schema: all sources must produce the same schema.
func (m *MergeSortExchange) Schema() columnar.Schema { return m.plan.Schema }

// Open only marks the executor open (Next fails before it, and Open fails
// after Close): initialization of sources is deferred to the first call
// to Next, which keeps source-creation lazy and the executor cheap to
// construct ahead of demand.
func (m *MergeSortExchange) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return newValidationError("exchange already closed")
	}
	m.opened = true
	return nil
}

func (m *MergeSortExchange) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// init runs first-call initialization: dials every source and pulls its
// first chunk concurrently, then seeds the heap with one HeapElem per
// non-exhausted source. Dialing fans out through errgroup.WithContext,
// since unlike a cache warm-up, one source failing to dial here should
// abort the others still connecting: a half-initialized merge can't
// produce a correct stream anyway.
func (m *MergeSortExchange) init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	firstChunks := make([]*columnar.Chunk, len(m.sources))
	for i := range m.sources {
		i := i
		g.Go(func() error {
			src, err := m.newSource(gctx, m.sources[i].desc)
			if err != nil {
				m.metrics.ObserveSourceError(i)
				return newSourceError(i, err)
			}
			m.sources[i].source = src

			chunk, err := src.TakeData(gctx)
			if err != nil {
				m.metrics.ObserveSourceError(i)
				return newSourceError(i, err)
			}
			if chunk == nil {
				m.sources[i].exhausted = true
				return nil
			}
			debug.Assert(chunk.Cardinality() > 0, "source returned a zero-cardinality chunk")
			if !chunk.Schema.Equal(m.plan.Schema) {
				return newValidationError("source %d schema does not match the plan's input schema", i)
			}
			firstChunks[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Heap isn't safe for concurrent use, so pushes happen here,
	// single-threaded, once every source has reported in.
	for i, chunk := range firstChunks {
		if chunk == nil {
			continue
		}
		row, ok := chunk.NextVisibleRowIdx(0)
		debug.Assert(ok, "non-empty chunk with no visible row")
		m.heap.Push(&sortutil.HeapElem{SourceIdx: i, Chunk: chunk, RowIdx: row})
	}
	return nil
}

// pullAndPush pulls one chunk from source idx and, if non-empty, pushes a
// HeapElem at its first visible row. End-of-stream marks the source
// exhausted without error.
func (m *MergeSortExchange) pullAndPush(ctx context.Context, idx int) error {
	s := &m.sources[idx]
	chunk, err := s.source.TakeData(ctx)
	if err != nil {
		m.metrics.ObserveSourceError(idx)
		return newSourceError(idx, err)
	}
	if chunk == nil {
		s.exhausted = true
		return nil
	}
	debug.Assert(chunk.Cardinality() > 0, "source returned a zero-cardinality chunk")
	row, ok := chunk.NextVisibleRowIdx(0)
	debug.Assert(ok, "non-empty chunk with no visible row")
	m.heap.Push(&sortutil.HeapElem{SourceIdx: idx, Chunk: chunk, RowIdx: row})
	return nil
}

// Next implements the production loop: pop rows off the heap into a builder
// until WINDOW rows accumulate or every source is exhausted.
func (m *MergeSortExchange) Next(ctx context.Context) (*columnar.Chunk, error) {
	m.mu.Lock()
	opened, closed, exhausted := m.opened, m.closed, m.exhausted
	m.mu.Unlock()
	if closed {
		return nil, newValidationError("Next called after Close")
	}
	if !opened {
		return nil, newValidationError("Next called before Open")
	}
	if exhausted {
		return nil, nil
	}

	if !m.initialized() {
		if err := m.init(ctx); err != nil {
			return nil, err
		}
		m.markInitialized()
	}

	if m.heap.Len() == 0 {
		m.mu.Lock()
		m.exhausted = true
		m.mu.Unlock()
		return nil, nil
	}

	b := columnar.NewBuilder(m.plan.Schema, m.window)
	for b.Len() < m.window && m.heap.Len() > 0 {
		elem := m.heap.Pop()
		b.AppendRow(elem.Chunk, elem.RowIdx)

		nextIdx, ok := elem.Chunk.NextVisibleRowIdx(elem.RowIdx + 1)
		if ok {
			m.heap.Push(&sortutil.HeapElem{SourceIdx: elem.SourceIdx, Chunk: elem.Chunk, RowIdx: nextIdx})
			continue
		}
		if err := m.pullAndPush(ctx, elem.SourceIdx); err != nil {
			return nil, err
		}
	}

	if m.heap.Len() == 0 {
		m.mu.Lock()
		m.exhausted = true
		m.mu.Unlock()
	}

	out := b.Finish()
	m.metrics.ObserveChunk(out.Cardinality())
	nlog.Infoln("exchange: produced chunk of", out.Cardinality(), "rows")
	return out, nil
}

// initialized/markInitialized track whether sources have been created yet;
// split out from opened/closed/exhausted since init() happens lazily on
// the first Next, not on Open.
func (m *MergeSortExchange) initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.didInit
}

func (m *MergeSortExchange) markInitialized() {
	m.mu.Lock()
	m.didInit = true
	m.mu.Unlock()
}
