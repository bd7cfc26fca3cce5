package remote

import (
	"context"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/cascadedb/cascade/columnar"
	"github.com/cascadedb/cascade/exchange"
)

type stubBackend struct {
	chunks []*columnar.Chunk
	i      int
	err    error
}

func (b *stubBackend) Source(taskID string, outputID int) (exchange.ExchangeSource, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b, nil
}

func (b *stubBackend) TakeData(ctx context.Context) (*columnar.Chunk, error) {
	if b.i >= len(b.chunks) {
		return nil, nil
	}
	c := b.chunks[b.i]
	b.i++
	return c, nil
}

func schema() columnar.Schema {
	return columnar.Schema{Fields: []columnar.Field{{Name: "id", Type: columnar.Int32}}}
}

func chunk(ids ...int32) *columnar.Chunk {
	return columnar.NewChunk(schema(), []columnar.Column{{Type: columnar.Int32, I32: ids}}, len(ids))
}

func startInMemoryServer(t *testing.T, backend Backend) (*fasthttp.Client, func()) {
	t.Helper()
	ln := fasthttputil.NewInMemoryListener()
	srv := &fasthttp.Server{Handler: NewServer(backend).Handler()}
	go srv.Serve(ln)

	httpc := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
	return httpc, func() { ln.Close() }
}

func TestRemoteClientServerRoundTrip(t *testing.T) {
	backend := &stubBackend{chunks: []*columnar.Chunk{chunk(1, 2, 3)}}
	httpc, closeSrv := startInMemoryServer(t, backend)
	defer closeSrv()

	factory := NewClient(httpc)
	src, err := factory(context.Background(), exchange.SourceDescriptor{Address: "http://unused", TaskID: "t1", OutputID: 0})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	c, err := src.TakeData(context.Background())
	if err != nil {
		t.Fatalf("TakeData: %v", err)
	}
	if c == nil || c.Cardinality() != 3 {
		t.Fatalf("expected chunk of 3 rows, got %v", c)
	}
	if c.Columns[0].Int32At(0) != 1 || c.Columns[0].Int32At(2) != 3 {
		t.Fatalf("decoded values mismatch: %+v", c.Columns[0].I32)
	}

	c2, err := src.TakeData(context.Background())
	if err != nil || c2 != nil {
		t.Fatalf("expected end-of-stream, got (%v, %v)", c2, err)
	}
}

func TestRemoteServerPropagatesSourceError(t *testing.T) {
	backend := &stubBackend{err: errTest{"boom"}}
	httpc, closeSrv := startInMemoryServer(t, backend)
	defer closeSrv()

	factory := NewClient(httpc)
	src, err := factory(context.Background(), exchange.SourceDescriptor{Address: "http://unused", TaskID: "t1", OutputID: 0})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, err := src.TakeData(context.Background()); err == nil {
		t.Fatalf("expected error from TakeData")
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
