package proxy

import (
	"bufio"
	"context"

	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// maxSSELine bounds one upstream SSE line. Provider frames carrying long
// tool-call arguments can run large.
const maxSSELine = 1 << 20

func setSSEHeaders(fctx *fasthttp.RequestCtx) {
	fctx.SetContentType("text/event-stream")
	fctx.Response.Header.Set("Cache-Control", "no-cache")
	fctx.Response.Header.Set("Connection", "keep-alive")
	fctx.SetStatusCode(fasthttp.StatusOK)
}

// streamUpstream relays a native upstream SSE stream to the client,
// translating each frame through the provider's chunk transform. A client
// disconnect cancels the upstream request; the stream is terminated with the
// [DONE] frame if the upstream ends without one.
func (g *Gateway) streamUpstream(fctx *fasthttp.RequestCtx, res *adapter.Result, tc adapter.TransformContext, cancel context.CancelFunc, done func(cancelled bool)) {
	setSSEHeaders(fctx)

	fctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() { _ = recover() }()
		defer cancel()
		defer res.Stream.Close()

		cancelled := false
		sawDone := false

		sc := bufio.NewScanner(res.Stream)
		sc.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	scan:
		for sc.Scan() {
			payload, ok := schema.SSEPayload(sc.Bytes())
			if !ok || len(payload) == 0 {
				continue
			}
			frames, isDone, err := adapter.ProcessChunk(payload, tc, res.Transform)
			if err != nil {
				g.log.Warn("stream_chunk_error",
					"provider", res.Provider,
					"error", err.Error(),
				)
				continue
			}
			for _, f := range frames {
				if _, werr := w.Write(f); werr != nil {
					cancelled = true
					break scan
				}
			}
			if werr := w.Flush(); werr != nil {
				cancelled = true
				break
			}
			if isDone {
				sawDone = true
				break
			}
		}

		if !cancelled && !sawDone {
			_, _ = w.WriteString(schema.SSEDone)
			_ = w.Flush()
		}
		done(cancelled)
	})
}

// writeFrames streams pre-built SSE frames (synthesized chunks or a cache
// replay) to the client.
func (g *Gateway) writeFrames(fctx *fasthttp.RequestCtx, frames [][]byte, done func(cancelled bool)) {
	setSSEHeaders(fctx)

	fctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() { _ = recover() }()

		cancelled := false
		for _, f := range frames {
			if _, err := w.Write(f); err != nil {
				cancelled = true
				break
			}
			if err := w.Flush(); err != nil {
				cancelled = true
				break
			}
		}
		done(cancelled)
	})
}
