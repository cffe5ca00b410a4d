package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	agCache "github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
	"github.com/nulpointcorp/agent-gateway/internal/logger"
	"github.com/nulpointcorp/agent-gateway/internal/metrics"
	"github.com/nulpointcorp/agent-gateway/internal/mgmt"
	"github.com/nulpointcorp/agent-gateway/internal/proxy"
	"github.com/nulpointcorp/agent-gateway/internal/ratelimit"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/store"
)

// hookTimeout bounds a single hook call (HTTP or LLM).
const hookTimeout = 30 * time.Second

// initInfra establishes optional external connections. Redis is needed for
// the redis cache mode and for rate limiting; ClickHouse only when a DSN is
// set.
func (a *App) initInfra(ctx context.Context) error {
	needRedis := a.cfg.Cache.Mode == "redis" ||
		a.cfg.RateLimit.RPMLimit > 0 || a.cfg.RateLimit.AgentRPMLimit > 0

	if needRedis {
		a.log.Info("connecting to redis", slog.String("url", redactURL(a.cfg.Redis.URL)))

		rdb, err := connectRedis(ctx, a.cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		a.log.Info("redis connected")
	}

	if a.cfg.ClickHouse.DSN != "" {
		a.log.Info("connecting to clickhouse", slog.String("dsn", redactURL(a.cfg.ClickHouse.DSN)))

		ch, err := logger.NewClickHouseStore(ctx, a.cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		a.chStore = ch
		a.log.Info("clickhouse connected")
	}

	return nil
}

// initServices creates the store, key cipher, cache backend, metrics
// registry, live trace feed, and the async dispatch logger.
func (a *App) initServices(ctx context.Context) error {
	a.st = store.NewMemoryStore()

	cipher, err := store.NewCipher(a.cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("cipher: %w", err)
	}
	a.cipher = cipher

	switch a.cfg.Cache.Mode {
	case "redis":
		a.cacheImpl = agCache.NewRedisCacheFromClient(a.rdb)
		a.log.Info("cache backend: redis")

	case "memory":
		a.memCache = agCache.NewMemoryCache(a.baseCtx)
		a.cacheImpl = a.memCache
		a.log.Info("cache backend: memory (in-process)")

	case "none":
		a.log.Info("cache backend: disabled")

	default:
		return fmt.Errorf("unknown cache mode: %s", a.cfg.Cache.Mode)
	}

	a.prom = metrics.New()
	a.prom.SetBuildInfo(a.version)

	a.feed = logger.NewLiveFeed()

	// ClickHouse is optional; with no store the logger falls back to slog.
	var logStore logger.LogStore
	if a.chStore != nil {
		logStore = a.chStore
	}
	reqLogger, err := logger.New(a.baseCtx, logStore, a.feed, a.log)
	if err != nil {
		return fmt.Errorf("dispatch logger: %w", err)
	}
	a.reqLogger = reqLogger

	return nil
}

// initDispatch builds the adapter engine, the config resolver, the gateway,
// and its optional subsystems.
func (a *App) initDispatch(_ context.Context) error {
	registry := adapter.NewRegistry()
	dispatcher := adapter.NewDispatcher(a.cfg.Dispatch.Timeout, a.prom)
	engine := adapter.NewEngine(registry, dispatcher,
		a.cfg.Dispatch.ForwardHeaders, a.cfg.Dispatch.StrictCompliance)

	resolver := reqconfig.NewResolver(a.st, a.cipher, registry)

	gw := proxy.NewGateway(a.baseCtx, engine, resolver, a.st, proxy.Options{
		Logger:      a.log,
		Metrics:     a.prom,
		CacheTTL:    a.cfg.Cache.TTL,
		AuthToken:   a.cfg.AuthToken,
		JWTSecret:   []byte(a.cfg.JWTSecret),
		CORSOrigins: a.cfg.CORSOrigins,
	})

	if a.cacheImpl != nil {
		gw.SetCache(a.cacheImpl)
	}

	// Hooks share the response cache and invoke LLM hooks through the same
	// adapter engine as regular dispatches.
	gw.SetHooks(hooks.NewExecutor(a.cacheImpl, proxy.NewEngineInvoker(engine), a.prom, hookTimeout))

	if a.rdb != nil && (a.cfg.RateLimit.RPMLimit > 0 || a.cfg.RateLimit.AgentRPMLimit > 0) {
		gw.SetRateLimiter(ratelimit.NewRPMLimiter(a.rdb,
			a.cfg.RateLimit.RPMLimit, a.cfg.RateLimit.AgentRPMLimit))
		a.log.Info("rate limiting enabled",
			slog.Int("rpm_limit", a.cfg.RateLimit.RPMLimit),
			slog.Int("agent_rpm_limit", a.cfg.RateLimit.AgentRPMLimit))
	}

	gw.SetLogger(a.reqLogger)

	a.tools = proxy.NewToolCapture(a.baseCtx, a.st, a.prom, a.log)
	gw.SetToolCapture(a.tools)

	a.gw = gw

	return nil
}

// initGateway mounts the management API next to the proxy surface.
func (a *App) initGateway(_ context.Context) error {
	a.mgmt = mgmt.New(a.st, a.cipher, a.feed, a.cfg.AuthToken, []byte(a.cfg.JWTSecret), a.log)
	return nil
}
