package exchange

import (
	"context"

	"github.com/cascadedb/cascade/columnar"
)

// ExchangeSource is an async pull source of successive sorted chunks from
// one upstream shuffle shard. Each call to TakeData returns
// either a chunk of cardinality > 0 or end-of-stream (nil, nil); it must
// never return an empty, zero-cardinality chunk. Once a source reports
// end-of-stream, the executor makes no further calls on it.
type ExchangeSource interface {
	TakeData(ctx context.Context) (*columnar.Chunk, error)
}

// SourceDescriptor identifies one remote shuffle source: its network
// address and the upstream task/output that produced it. Decoded verbatim
// from the plan node's source list.
type SourceDescriptor struct {
	Address  string `json:"address"`
	TaskID   string `json:"task_id"`
	OutputID int    `json:"output_id"`
}

// CreateSource is the injected factory that turns one SourceDescriptor into
// a live ExchangeSource. Production call sites dial the remote shuffle
// endpoint (exchange/remote.NewClient); tests inject a factory returning an
// in-memory fixture source.
type CreateSource func(ctx context.Context, desc SourceDescriptor) (ExchangeSource, error)
