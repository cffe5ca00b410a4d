package proxy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/classifier"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
	"github.com/nulpointcorp/agent-gateway/internal/logger"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
	"github.com/nulpointcorp/agent-gateway/internal/store"
	"github.com/nulpointcorp/agent-gateway/pkg/apierr"
)

const (
	xCacheHeader = "X-Cache"
)

// Dispatch is the handler behind every /v1 proxy route. The request flows
// through classification, config resolution, rate limiting, cache read,
// input hooks, the adapter engine, tool capture, output hooks, cache write,
// and log emission, in that order.
func (g *Gateway) Dispatch(fctx *fasthttp.RequestCtx) {
	start := time.Now()
	method := string(fctx.Method())
	path := string(fctx.Path())
	body := append([]byte(nil), fctx.PostBody()...)
	contentType := string(fctx.Request.Header.ContentType())
	isMultipart := strings.HasPrefix(contentType, "multipart/form-data")

	stream := gjson.GetBytes(body, "stream").Bool()
	match := classifier.Classify(method, path, stream)
	fn := match.Function
	if fn == schema.FnUnknown {
		apierr.Write(fctx, fasthttp.StatusNotFound,
			fmt.Sprintf("no endpoint matches %s %s", method, path),
			apierr.TypeNotFound, apierr.CodeUnknownEndpoint)
		return
	}

	streaming := false
	if g.metrics != nil {
		g.metrics.IncInFlight()
	}
	defer func() {
		if g.metrics == nil {
			return
		}
		g.metrics.DecInFlight()
		if streaming {
			return // finalised by the stream writer
		}
		g.metrics.ObserveHTTP(string(fn), fctx.Response.StatusCode(), time.Since(start))
	}()

	// 1. Per-request configuration.
	rc, err := reqconfig.ParseHeader(reqconfig.FromRequestHeader(&fctx.Request.Header))
	if err != nil {
		g.writeConfigError(fctx, err)
		return
	}

	// 2. Canonical request validation. Multipart bodies validate at the
	// provider; everything else must match the function's schema.
	if !isMultipart {
		if _, err := schema.ValidateRequest(fn, body); err != nil {
			apierr.Write(fctx, fasthttp.StatusUnprocessableEntity, err.Error(),
				apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
			return
		}
	}

	// 3. Agent and skill binding.
	var agentID, skillID string
	if rc.AgentName != "" {
		agent, err := g.store.GetAgentByName(fctx, rc.AgentName)
		if err != nil {
			g.writeStoreError(fctx, err, fmt.Sprintf("agent %q not found", rc.AgentName))
			return
		}
		agentID = agent.ID
		if rc.SkillName != "" {
			skill, err := g.store.GetSkillByName(fctx, agent.ID, rc.SkillName)
			if err != nil {
				g.writeStoreError(fctx, err, fmt.Sprintf("skill %q not found for agent %q", rc.SkillName, rc.AgentName))
				return
			}
			skillID = skill.ID
		}
	}

	// 4. Target resolution.
	resolved, err := g.resolver.Resolve(fctx, skillID, rc)
	if err != nil {
		g.writeConfigError(fctx, err)
		return
	}

	// 5. Rate limit.
	if g.limiter != nil {
		allowed, lerr := g.limiter.Allow(fctx, rc.AgentName)
		if lerr == nil && !allowed {
			g.recordRateLimit("blocked")
			apierr.WriteRateLimit(fctx)
			return
		}
		g.recordRateLimit("allowed")
	}

	entry := logger.DispatchLog{
		AgentID:        agentID,
		SkillID:        skillID,
		Method:         method,
		Endpoint:       path,
		FunctionName:   string(fn),
		StartTime:      start,
		BaseConfig:     resolved.ConfigurationName,
		AIProvider:     resolved.Provider,
		Model:          resolved.Model,
		CacheStatus:    cache.StatusDisabled,
		TraceID:        rc.TraceID,
		ParentSpanID:   rc.ParentSpanID,
		SpanName:       rc.SpanName,
		AppID:          rc.AppID,
		ExternalUserID: rc.ExternalUserID,
		UserMetadata:   rc.UserMetadata,
	}

	finish := func(status string, respBody []byte) {
		entry.Status = status
		entry.EndTime = time.Now()
		entry.DurationMs = entry.EndTime.Sub(start).Milliseconds()
		if len(respBody) > 0 {
			entry.InputTokens = int(gjson.GetBytes(respBody, "usage.prompt_tokens").Int())
			entry.OutputTokens = int(gjson.GetBytes(respBody, "usage.completion_tokens").Int())
		}
		if g.logs != nil {
			g.logs.Log(entry)
		}
		if g.metrics != nil {
			code, _ := strconv.Atoi(status)
			g.metrics.ObserveDispatch(resolved.Provider, string(fn), string(entry.CacheStatus), code, time.Since(start))
			g.metrics.AddTokens(resolved.Provider, string(fn), entry.InputTokens, entry.OutputTokens)
		}
	}

	// 6. Cache read. Keys use the non-streaming function name so streamed
	// and buffered requests for the same body share one entry.
	cacheable := method == fasthttp.MethodPost && len(body) > 0 && !isMultipart
	var cacheKey string
	lookup := cache.Result{Status: cache.StatusDisabled}
	if cacheable && g.cache != nil {
		cacheKey = cache.Fingerprint(fn.NonStreamingVariant(), body)
		lookup = cache.Lookup(fctx, g.cache, cacheKey, rc.CacheEnabled(), rc.ForceRefresh)
		g.recordCache(lookup.Status)
	}
	entry.CacheStatus = lookup.Status

	if lookup.Status == cache.StatusHit {
		fctx.Response.Header.Set(xCacheHeader, string(cache.StatusHit))
		if fn.IsStreaming() {
			frames, cerr := adapter.ChunksFromResponse(lookup.Value, resolved.Provider)
			if cerr == nil {
				streaming = true
				hit := lookup.Value
				g.writeFrames(fctx, frames, func(cancelled bool) {
					g.finishStream(fn, start, cancelled, hit, finish)
				})
				return
			}
			g.log.WarnContext(fctx, "cache_replay_failed", "error", cerr.Error())
		} else {
			fctx.SetStatusCode(fasthttp.StatusOK)
			fctx.SetContentType("application/json")
			fctx.SetBody(lookup.Value)
			finish("200", lookup.Value)
			return
		}
	}

	// 7. Input hooks.
	inv := &hooks.Invocation{
		Function:     fn,
		AgentName:    rc.AgentName,
		SkillName:    rc.SkillName,
		Hooks:        rc.Hooks,
		RequestBody:  body,
		ForceRefresh: rc.ForceHookRefresh,
	}
	if g.hooks != nil && len(rc.Hooks) > 0 {
		entry.HookLogs = g.hooks.Run(fctx, hooks.PhaseInput, inv)
		if denied, reason := hooks.Denied(entry.HookLogs); denied {
			if reason == "" {
				reason = "request denied by input hook"
			}
			apierr.Write(fctx, fasthttp.StatusForbidden, reason,
				apierr.TypePermissionError, apierr.CodeHookDenied)
			finish("403", nil)
			return
		}
		// An awaited input hook may rewrite the canonical request; the first
		// override in input order wins. The cache key keeps the original body
		// so replays stay consistent with the HIT short-circuit above.
		if override, ok := hooks.RequestOverride(entry.HookLogs); ok {
			body = append([]byte(nil), override...)
			inv.RequestBody = body
		}
	}

	// 8. Upstream dispatch. The context derives from the server's base
	// context, not the request, so a streaming body outlives the handler.
	upstreamCtx, cancelUpstream := context.WithCancel(g.baseCtx)
	upStart := time.Now()
	res, err := g.engine.Execute(upstreamCtx, fn, method, body, resolved, match.PathParams, g.inboundHeaders(fctx))
	if err != nil {
		cancelUpstream()
		g.writeDispatchError(fctx, resolved.Provider, err)
		finish(strconv.Itoa(fctx.Response.StatusCode()), nil)
		return
	}
	entry.ProviderRequestLog = logger.ProviderRequestLog{
		Method:     method,
		StatusCode: res.StatusCode,
		StartTime:  upStart,
		EndTime:    time.Now(),
	}

	// 9. Tool capture. The request body is final here, so this runs for
	// streaming and buffered responses alike.
	if g.tools != nil && agentID != "" {
		g.tools.Capture(agentID, body)
	}

	// 10a. Native streaming: translate upstream frames as they arrive.
	if res.Stream != nil {
		streaming = true
		tc := adapter.TransformContext{Function: fn, Target: resolved, State: map[string]any{}}
		g.streamUpstream(fctx, res, tc, cancelUpstream, func(cancelled bool) {
			g.finishStream(fn, start, cancelled, nil, finish)
		})
		return
	}
	defer cancelUpstream()

	// 10b. Synthesized streaming: the upstream answered with a complete body
	// that the adapter already split into frames.
	if res.Frames != nil {
		streaming = true
		g.writeFrames(fctx, res.Frames, func(cancelled bool) {
			g.finishStream(fn, start, cancelled, nil, finish)
		})
		return
	}

	respBody := res.Body
	status := res.StatusCode
	entry.ProviderRequestLog.ResponseBody = respBody

	// 11. Output hooks — successful, buffered responses only. An awaited
	// output hook may rewrite the canonical response; first in input order
	// wins.
	if status == fasthttp.StatusOK && g.hooks != nil && len(rc.Hooks) > 0 {
		inv.ResponseBody = respBody
		outLogs := g.hooks.Run(fctx, hooks.PhaseOutput, inv)
		entry.HookLogs = append(entry.HookLogs, outLogs...)
		if override, ok := hooks.ResponseOverride(outLogs); ok {
			respBody = append([]byte(nil), override...)
		}
	}

	// 12. Cache write — successful, buffered responses in the simple mode
	// only. The stored body is what the client receives, overrides included.
	if status == fasthttp.StatusOK && cacheable && g.cache != nil && rc.CacheWritable() {
		_ = g.cache.Set(fctx, cacheKey, respBody, g.cacheTTL)
	}

	if cacheable && g.cache != nil {
		fctx.Response.Header.Set(xCacheHeader, string(lookup.Status))
	}
	fctx.SetStatusCode(status)
	fctx.SetContentType("application/json")
	fctx.SetBody(respBody)
	finish(strconv.Itoa(status), respBody)
}

// finishStream finalises the dispatch log and metrics after the stream
// writer drains. respBody is the replayed cache value when present.
func (g *Gateway) finishStream(fn schema.FunctionName, start time.Time, cancelled bool, respBody []byte, finish func(string, []byte)) {
	status := "200"
	if cancelled {
		status = logger.StatusCancelled
	}
	finish(status, respBody)
	if g.metrics != nil {
		g.metrics.ObserveHTTP(string(fn), fasthttp.StatusOK, time.Since(start))
	}
}

// inboundHeaders collects the inbound headers the engine may forward: the
// configured pass-through set plus the content type for multipart bodies.
func (g *Gateway) inboundHeaders(fctx *fasthttp.RequestCtx) map[string]string {
	h := make(map[string]string)
	if ct := fctx.Request.Header.ContentType(); len(ct) > 0 {
		h["Content-Type"] = string(ct)
	}
	for _, name := range g.engine.ForwardHeaders() {
		if v := fctx.Request.Header.Peek(name); len(v) > 0 {
			h[name] = string(v)
		}
	}
	return h
}

func (g *Gateway) recordRateLimit(result string) {
	if g.metrics != nil {
		g.metrics.RecordRateLimit(result)
	}
}

func (g *Gateway) recordCache(status cache.Status) {
	if g.metrics != nil {
		g.metrics.RecordCache("request", strings.ToLower(string(status)))
	}
}

// writeConfigError maps a reqconfig failure to its carried HTTP status.
func (g *Gateway) writeConfigError(fctx *fasthttp.RequestCtx, err error) {
	var cfgErr *reqconfig.ConfigError
	if errors.As(err, &cfgErr) {
		errType := apierr.TypeInvalidRequest
		if cfgErr.Status >= fasthttp.StatusInternalServerError {
			errType = apierr.TypeServerError
		}
		apierr.Write(fctx, cfgErr.Status, cfgErr.Message, errType, apierr.CodeInvalidConfig)
		return
	}
	apierr.Write(fctx, fasthttp.StatusInternalServerError, err.Error(),
		apierr.TypeServerError, apierr.CodeInternalError)
}

// writeStoreError maps a storage failure: not-found binds to 404, anything
// else is a 500.
func (g *Gateway) writeStoreError(fctx *fasthttp.RequestCtx, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		apierr.Write(fctx, fasthttp.StatusNotFound, notFoundMsg,
			apierr.TypeNotFound, apierr.CodeNotFound)
		return
	}
	apierr.Write(fctx, fasthttp.StatusInternalServerError, err.Error(),
		apierr.TypeServerError, apierr.CodeInternalError)
}

// writeDispatchError maps adapter engine failures onto client responses.
func (g *Gateway) writeDispatchError(fctx *fasthttp.RequestCtx, provider string, err error) {
	var (
		unsupported *adapter.UnsupportedFunctionError
		invalid     *adapter.InvalidRequestError
		shape       *adapter.ShapeError
		cfgErr      *reqconfig.ConfigError
	)
	switch {
	case errors.As(err, &unsupported):
		apierr.WriteProvider(fctx, fasthttp.StatusNotFound, provider, err.Error(),
			apierr.TypeNotFound, apierr.CodeNotImplemented)
	case errors.As(err, &invalid):
		apierr.WriteProvider(fctx, fasthttp.StatusUnprocessableEntity, provider, err.Error(),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
	case errors.As(err, &shape):
		fctx.SetStatusCode(fasthttp.StatusBadGateway)
		fctx.SetContentType("application/json")
		fctx.SetBody(adapter.ShapeErrorBody(shape))
	case errors.Is(err, adapter.ErrRetriesExhausted):
		apierr.WriteTimeout(fctx, provider)
	case errors.As(err, &cfgErr):
		g.writeConfigError(fctx, err)
	default:
		apierr.WriteProvider(fctx, fasthttp.StatusBadGateway, provider, err.Error(),
			apierr.TypeProviderError, apierr.CodeProviderError)
	}
}
