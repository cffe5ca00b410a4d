package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/metrics"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
)

// maxParallelHooks bounds concurrent hook invocations per dispatch.
const maxParallelHooks = 8

// Executor runs the hooks of one phase. All failure modes are absorbed: a
// hook that errors yields a log entry with a hookProviderError metadatum and
// never denies or fails the dispatch.
type Executor struct {
	cache      cache.Cache // nil disables the hook cache
	httpClient *http.Client
	llm        LLMInvoker
	metrics    *metrics.Registry // nil-safe
	ttl        time.Duration
}

func NewExecutor(c cache.Cache, llm LLMInvoker, reg *metrics.Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		cache:      c,
		httpClient: &http.Client{Timeout: timeout},
		llm:        llm,
		metrics:    reg,
		ttl:        cache.DefaultTTL,
	}
}

// Run executes the hooks of phase for inv. Hooks run in parallel; the
// returned logs preserve the input order of inv.Hooks regardless of
// completion order.
func (e *Executor) Run(ctx context.Context, phase string, inv *Invocation) []Log {
	hooks := filterForPhase(inv, phase)
	if len(hooks) == 0 {
		return nil
	}

	logs := make([]Log, len(hooks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelHooks)

	for i := range hooks {
		i := i
		g.Go(func() error {
			logs[i] = e.runOne(gctx, phase, &hooks[i], inv)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error

	return logs
}

func (e *Executor) runOne(ctx context.Context, phase string, h *reqconfig.Hook, inv *Invocation) Log {
	start := time.Now()
	l := Log{
		HookID:      h.ID,
		Hook:        *h,
		StartTime:   start,
		CacheStatus: cache.StatusDisabled,
	}

	hookJSON, _ := json.Marshal(h)
	var respPart []byte
	if phase == PhaseOutput {
		respPart = inv.ResponseBody
	}
	key := cache.HookFingerprint(inv.Function, hookJSON, inv.RequestBody, respPart)

	cacheEnabled := e.cache != nil && h.CacheMode != "disabled"
	res := cache.Lookup(ctx, e.cache, key, cacheEnabled, inv.ForceRefresh)
	l.CacheStatus = res.Status
	e.recordCache(res.Status)

	if res.Status == cache.StatusHit {
		var cached Result
		if err := json.Unmarshal(res.Value, &cached); err == nil {
			l.Result = cached
			return e.finish(l, phase, h, "cache_hit", start)
		}
		// Corrupt entry: fall through to a fresh invocation.
		l.CacheStatus = cache.StatusMiss
	}

	doc := Document{
		HookID:       h.ID,
		Phase:        phase,
		FunctionName: string(inv.Function),
		AgentName:    inv.AgentName,
		SkillName:    inv.SkillName,
		Request:      inv.RequestBody,
		Response:     respPart,
	}

	raw, err := e.invoke(ctx, h, doc)
	if err != nil {
		slog.WarnContext(ctx, "hook_failed",
			slog.String("hook_id", h.ID),
			slog.String("phase", phase),
			slog.String("provider", h.HookProvider),
			slog.String("error", err.Error()),
		)
		l.Result = Result{
			Skipped:  false,
			Metadata: map[string]any{"hookProviderError": err.Error()},
		}
		return e.finish(l, phase, h, "error", start)
	}

	l.RawResponse = raw
	l.Result = parseResult(raw)

	if cacheEnabled {
		if val, merr := json.Marshal(l.Result); merr == nil {
			_ = e.cache.Set(ctx, key, val, e.ttl)
		}
	}

	return e.finish(l, phase, h, "ok", start)
}

func (e *Executor) invoke(ctx context.Context, h *reqconfig.Hook, doc Document) (json.RawMessage, error) {
	switch h.HookProvider {
	case "http":
		return e.invokeHTTP(ctx, h, doc)
	case "llm":
		if e.llm == nil {
			return nil, fmt.Errorf("llm hooks are not configured")
		}
		return e.llm.InvokeHookLLM(ctx, h.Config, doc)
	}
	return nil, fmt.Errorf("unknown hook provider %q", h.HookProvider)
}

func (e *Executor) invokeHTTP(ctx context.Context, h *reqconfig.Hook, doc Document) (json.RawMessage, error) {
	url := gjson.GetBytes(h.Config, "url").String()
	if url == "" {
		return nil, fmt.Errorf("http hook has no url")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal hook document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	gjson.GetBytes(h.Config, "headers").ForEach(func(k, v gjson.Result) bool {
		req.Header.Set(k.String(), v.String())
		return true
	})

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read hook response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("hook returned status %d", resp.StatusCode)
	}
	return body, nil
}

// parseResult validates a provider response as a Result. Unparseable bodies
// degrade to an empty (non-denying) result carrying the raw body.
func parseResult(raw []byte) Result {
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return Result{Metadata: map[string]any{"hookProviderError": "unparseable hook response"}}
	}
	return r
}

func (e *Executor) finish(l Log, phase string, h *reqconfig.Hook, outcome string, start time.Time) Log {
	l.EndTime = time.Now()
	l.DurationMs = l.EndTime.Sub(start).Milliseconds()
	if e.metrics != nil {
		e.metrics.RecordHook(phase, h.HookProvider, outcome, l.EndTime.Sub(start))
	}
	return l
}

func (e *Executor) recordCache(status cache.Status) {
	if e.metrics != nil {
		e.metrics.RecordCache("hook", string(status))
	}
}
