// Package proxy is the dispatch pipeline: it receives an OpenAI-compatible
// request, classifies it, resolves the per-request configuration into a
// provider target, runs the input hooks, consults the response cache, drives
// the adapter engine, runs the output hooks, and emits one dispatch log.
//
// Key design constraints:
//   - Logger, cache, rate limiter, hooks, and tool capture are optional and
//     nil-safe; the pipeline runs with any subset wired.
//   - All upstream I/O uses context.Context so cancellation propagates.
//   - Streaming responses are never cached; cached responses requested with
//     stream=true are replayed as synthesized word-boundary chunks.
package proxy

import (
	"context"
	"log/slog"
	"time"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
	"github.com/nulpointcorp/agent-gateway/internal/logger"
	"github.com/nulpointcorp/agent-gateway/internal/metrics"
	"github.com/nulpointcorp/agent-gateway/internal/ratelimit"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/store"
)

// Options holds optional tuning parameters for a Gateway. All fields have
// sensible defaults and can be omitted.
type Options struct {
	// Logger is the structured logger for pipeline events. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Metrics enables Prometheus collection. Nil disables it.
	Metrics *metrics.Registry

	// CacheTTL is the lifetime of cached responses. Default: cache.DefaultTTL.
	CacheTTL time.Duration

	// AuthToken is the static gateway bearer token. Empty together with
	// JWTSecret means the gateway runs open.
	AuthToken string

	// JWTSecret verifies HMAC-signed session tokens as an alternative to the
	// static token.
	JWTSecret []byte

	// CORSOrigins is the CORS allowlist. Empty or ["*"] allows all.
	CORSOrigins []string
}

// Gateway is the dispatch pipeline. All dependencies are injected via the
// constructor so tests can replace them with doubles.
type Gateway struct {
	engine   *adapter.Engine
	resolver *reqconfig.Resolver
	store    store.Store
	baseCtx  context.Context
	log      *slog.Logger
	metrics  *metrics.Registry

	cacheTTL    time.Duration
	corsOrigins []string
	authToken   string
	jwtSecret   []byte

	// Optional dependencies — nil-safe when not configured.
	cache   cache.Cache
	hooks   *hooks.Executor
	limiter *ratelimit.RPMLimiter
	logs    *logger.Logger
	tools   *ToolCapture
}

// NewGateway creates a Gateway around the adapter engine, the config
// resolver, and the storage connector.
func NewGateway(baseCtx context.Context, engine *adapter.Engine, resolver *reqconfig.Resolver, st store.Store, opts Options) *Gateway {
	if baseCtx == nil {
		panic("proxy: context must not be nil")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}

	return &Gateway{
		engine:      engine,
		resolver:    resolver,
		store:       st,
		baseCtx:     baseCtx,
		log:         log,
		metrics:     opts.Metrics,
		cacheTTL:    cacheTTL,
		corsOrigins: opts.CORSOrigins,
		authToken:   opts.AuthToken,
		jwtSecret:   opts.JWTSecret,
	}
}

// SetCache injects the response cache backend.
func (g *Gateway) SetCache(c cache.Cache) { g.cache = c }

// SetHooks injects the hook executor.
func (g *Gateway) SetHooks(e *hooks.Executor) { g.hooks = e }

// SetRateLimiter injects the RPM rate limiter.
func (g *Gateway) SetRateLimiter(l *ratelimit.RPMLimiter) { g.limiter = l }

// SetLogger injects the async dispatch logger.
func (g *Gateway) SetLogger(l *logger.Logger) { g.logs = l }

// SetToolCapture injects the tool capture worker.
func (g *Gateway) SetToolCapture(t *ToolCapture) { g.tools = t }
