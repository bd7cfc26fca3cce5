package remote

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/cascadedb/cascade/cmn/nlog"
	"github.com/cascadedb/cascade/exchange"
)

// Backend resolves a (task_id, output_id) pair to the local
// exchange.ExchangeSource that should serve it. Server implementations own
// their own notion of a task (e.g. a running shuffle-write stage); Backend
// is the seam that keeps Server itself storage-agnostic.
type Backend interface {
	Source(taskID string, outputID int) (exchange.ExchangeSource, error)
}

// Server exposes one or more Backend-resolved ExchangeSources over HTTP,
// the counterpart dialed by client.TakeData.
type Server struct {
	backend Backend
}

// NewServer returns a Server backed by b.
func NewServer(b Backend) *Server {
	return &Server{backend: b}
}

// Handler returns the fasthttp.RequestHandler to mount at "/take".
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.handleTake
}

func (s *Server) handleTake(ctx *fasthttp.RequestCtx) {
	var req takeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeResponse(ctx, takeResponse{Error: "malformed take request: " + err.Error()})
		return
	}

	src, err := s.backend.Source(req.TaskID, req.OutputID)
	if err != nil {
		s.writeResponse(ctx, takeResponse{Error: err.Error(), RequestID: req.RequestID})
		return
	}

	chunk, err := src.TakeData(context.Background())
	if err != nil {
		nlog.Warningf("remote: source pull failed for task=%s output=%d request=%s: %v", req.TaskID, req.OutputID, req.RequestID, err)
		s.writeResponse(ctx, takeResponse{Error: err.Error(), RequestID: req.RequestID})
		return
	}

	resp := takeResponse{RequestID: req.RequestID}
	if chunk == nil {
		resp.EOF = true
	} else {
		resp.Chunk = toWire(chunk)
	}
	s.writeResponse(ctx, resp)
}

// writeResponse encodes resp and, when the caller advertised support for it
// via Accept-Encoding, compresses the body with s2 before writing it.
func (s *Server) writeResponse(ctx *fasthttp.RequestCtx, resp takeResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(takeResponse{Error: "encode take response: " + err.Error()})
	}
	ctx.SetContentType("application/json")
	if string(ctx.Request.Header.Peek("Accept-Encoding")) == s2ContentEncoding {
		ctx.Response.Header.Set("Content-Encoding", s2ContentEncoding)
		body = compress(body)
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

// ListenAndServe starts the server on addr. Blocks until the listener
// errors or is closed.
func (s *Server) ListenAndServe(addr string) error {
	return fasthttp.ListenAndServe(addr, s.Handler())
}
