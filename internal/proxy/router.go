package proxy

import (
	"encoding/json"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// Handler builds the complete fasthttp handler: the /v1 proxy surface,
// health and metrics endpoints, and any extra routes (the management API)
// registered by the caller.
func (g *Gateway) Handler(register func(r *router.Router)) fasthttp.RequestHandler {
	r := router.New()

	dispatch := g.auth(g.Dispatch)

	r.POST("/v1/chat/completions", dispatch)
	r.POST("/v1/completions", dispatch)
	r.POST("/v1/embeddings", dispatch)
	r.POST("/v1/images/generations", dispatch)
	r.POST("/v1/moderations", dispatch)
	r.POST("/v1/audio/speech", dispatch)
	r.POST("/v1/audio/transcriptions", dispatch)
	r.POST("/v1/audio/translations", dispatch)

	r.POST("/v1/files", dispatch)
	r.GET("/v1/files", dispatch)
	r.GET("/v1/files/{id}", dispatch)
	r.DELETE("/v1/files/{id}", dispatch)
	r.GET("/v1/files/{id}/content", dispatch)

	r.POST("/v1/fine_tuning/jobs", dispatch)
	r.GET("/v1/fine_tuning/jobs", dispatch)
	r.GET("/v1/fine_tuning/jobs/{id}", dispatch)
	r.POST("/v1/fine_tuning/jobs/{id}/cancel", dispatch)
	r.GET("/v1/fine_tuning/jobs/{id}/events", dispatch)

	r.POST("/v1/batches", dispatch)
	r.GET("/v1/batches", dispatch)
	r.GET("/v1/batches/{id}", dispatch)
	r.POST("/v1/batches/{id}/cancel", dispatch)

	r.POST("/v1/responses", dispatch)
	r.GET("/v1/responses/{id}", dispatch)
	r.DELETE("/v1/responses/{id}", dispatch)

	r.GET("/v1/models", dispatch)

	r.GET("/health", g.handleHealth)
	if g.metrics != nil {
		r.GET("/metrics", g.metrics.Handler())
	}
	if register != nil {
		register(r)
	}

	return applyMiddleware(r.Handler,
		recovery,
		requestID,
		timing,
		corsHandler(g.corsOrigins),
		securityHeaders,
	)
}

// Start starts the HTTP server on addr (e.g. ":8080"). register may add
// extra routes before the server starts; pass nil for proxy-only mode.
func (g *Gateway) Start(addr string, register func(r *router.Router)) error {
	srv := &fasthttp.Server{
		Handler:     g.Handler(register),
		ReadTimeout: 60 * time.Second,
		// No write timeout: SSE streams stay open as long as the
		// upstream produces frames.
	}
	return srv.ListenAndServe(addr)
}

func (g *Gateway) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, map[string]string{"status": "ok"})
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	data, _ := json.Marshal(v)
	ctx.SetBody(data)
}
