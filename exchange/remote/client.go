package remote

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/cascadedb/cascade/cmn/cos"
	"github.com/cascadedb/cascade/cmn/debug"
	"github.com/cascadedb/cascade/cmn/nlog"
	"github.com/cascadedb/cascade/columnar"
	"github.com/cascadedb/cascade/exchange"
)

const requestTimeout = 30 * time.Second

// client is the production exchange.ExchangeSource: it repeatedly POSTs to
// one remote shuffle endpoint's /take handler and decodes the chunks (or
// end-of-stream/error) it gets back.
type client struct {
	httpc  *fasthttp.Client
	addr   string
	taskID string
	output int
}

// NewClient is the production exchange.CreateSource: an async factory from
// a source descriptor to an ExchangeSource that dials the remote shuffle
// endpoint. httpc may be shared across sources pulling from the same
// process.
func NewClient(httpc *fasthttp.Client) exchange.CreateSource {
	if httpc == nil {
		httpc = &fasthttp.Client{Name: "cascade-exchange-client"}
	}
	return func(ctx context.Context, desc exchange.SourceDescriptor) (exchange.ExchangeSource, error) {
		return &client{httpc: httpc, addr: desc.Address, taskID: desc.TaskID, output: desc.OutputID}, nil
	}
}

func (c *client) TakeData(ctx context.Context) (*columnar.Chunk, error) {
	reqID := cos.GenUUID()
	reqBody, err := json.Marshal(takeRequest{TaskID: c.taskID, OutputID: c.output, RequestID: reqID})
	if err != nil {
		return nil, errors.Wrap(err, "remote: encode take request")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.addr + "/take")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Request-Id", reqID)
	req.Header.Set("Accept-Encoding", s2ContentEncoding)
	req.SetBody(reqBody)

	deadline := time.Now().Add(requestTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.httpc.DoDeadline(req, resp, deadline); err != nil {
		if cos.IsUnreachable(err, resp.StatusCode()) {
			nlog.Warningf("remote: %s unreachable (request %s): %v", c.addr, reqID, err)
		}
		return nil, errors.Wrapf(err, "remote: take from %s", c.addr)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, errors.Errorf("remote: take from %s: status %d", c.addr, resp.StatusCode())
	}

	body := resp.Body()
	if string(resp.Header.ContentEncoding()) == s2ContentEncoding {
		body, err = decompress(body)
		if err != nil {
			return nil, errors.Wrapf(err, "remote: decompress take response from %s", c.addr)
		}
	}

	var tr takeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, errors.Wrap(err, "remote: decode take response")
	}
	if tr.Error != "" {
		return nil, errors.New("remote: " + tr.Error)
	}
	if tr.EOF || tr.Chunk == nil {
		return nil, nil
	}
	debug.Assert(tr.RequestID == "" || tr.RequestID == reqID, "take response echoed a mismatched request id")
	return fromWire(tr.Chunk), nil
}
