package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/store"
)

// --- helpers ----------------------------------------------------------------

const chatFixture = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

type fixture struct {
	gw    *Gateway
	store store.Store
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	agent := &store.Agent{Name: "support-bot"}
	if err := st.CreateAgent(ctx, agent); err != nil {
		t.Fatal(err)
	}
	skill := &store.Skill{AgentID: agent.ID, Name: "triage"}
	if err := st.CreateSkill(ctx, skill); err != nil {
		t.Fatal(err)
	}

	reg := adapter.NewRegistry()
	disp := adapter.NewDispatcher(5*time.Second, nil)
	engine := adapter.NewEngine(reg, disp, nil, false)
	resolver := reqconfig.NewResolver(st, nil, reg)

	gw := NewGateway(ctx, engine, resolver, st, opts)
	return &fixture{gw: gw, store: st}
}

// serveGateway starts the gateway's full handler on an in-memory listener
// and returns an HTTP client that routes to it.
func serveGateway(t *testing.T, gw *Gateway) *http.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()

	go func() {
		_ = fasthttp.Serve(ln, gw.Handler(nil))
	}()
	t.Cleanup(func() { _ = ln.Close() })

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func configHeader(upstream string, extra string) string {
	target := fmt.Sprintf(`{"provider":"openai","model":"gpt-4o","api_key":"sk-test","custom_host":%q}`, upstream)
	if extra != "" {
		extra = "," + extra
	}
	return fmt.Sprintf(`{"agent_name":"support-bot","skill_name":"triage","targets":[%s]%s}`, target, extra)
}

func doChat(t *testing.T, client *http.Client, header, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", "http://gw/v1/chat/completions", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(reqconfig.HeaderPrimary, header)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

const chatBody = `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`

// --- tests ------------------------------------------------------------------

func TestDispatchPassthrough(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	resp := doChat(t, client, configHeader(upstream.URL, ""), chatBody)
	body := readBody(t, resp)

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("upstream auth = %q", gotAuth)
	}
	if !bytes.Contains(gotBody, []byte(`"gpt-4o"`)) {
		t.Fatalf("upstream body = %s", gotBody)
	}

	var out struct {
		Provider string `json:"provider"`
		Choices  []struct {
			Message struct{ Content string } `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Provider != "openai" {
		t.Fatalf("provider stamp = %q", out.Provider)
	}
	if out.Choices[0].Message.Content != "hello there" {
		t.Fatalf("content = %q", out.Choices[0].Message.Content)
	}
}

func TestDispatchUnknownEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	req, _ := http.NewRequest("POST", "http://gw/v1/chat/completions/extra", strings.NewReader(chatBody))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDispatchMissingConfigHeader(t *testing.T) {
	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	resp := doChat(t, client, "", chatBody)
	body := readBody(t, resp)
	if resp.StatusCode != 422 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestDispatchUnknownAgent(t *testing.T) {
	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	header := `{"agent_name":"nobody","targets":[{"provider":"openai","model":"gpt-4o","api_key":"sk"}]}`
	resp := doChat(t, client, header, chatBody)
	body := readBody(t, resp)
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte("not_found")) {
		t.Fatalf("body = %s", body)
	}
}

func TestDispatchInvalidBody(t *testing.T) {
	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	resp := doChat(t, client, configHeader("http://unused", ""), `{"messages":[{"role":"user","content":"hi"}]}`)
	body := readBody(t, resp)
	if resp.StatusCode != 422 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte("model")) {
		t.Fatalf("body = %s", body)
	}
}

func TestDispatchCache(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	f.gw.SetCache(cache.NewMemoryCache(context.Background()))
	client := serveGateway(t, f.gw)

	resp := doChat(t, client, configHeader(upstream.URL, ""), chatBody)
	readBody(t, resp)
	if got := resp.Header.Get(xCacheHeader); got != "MISS" {
		t.Fatalf("first X-Cache = %q", got)
	}

	resp = doChat(t, client, configHeader(upstream.URL, ""), chatBody)
	body := readBody(t, resp)
	if got := resp.Header.Get(xCacheHeader); got != "HIT" {
		t.Fatalf("second X-Cache = %q", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("upstream called %d times", calls.Load())
	}
	if !bytes.Contains(body, []byte("hello there")) {
		t.Fatalf("cached body = %s", body)
	}

	// force_refresh bypasses the read but refreshes the entry.
	resp = doChat(t, client, configHeader(upstream.URL, `"force_refresh":true`), chatBody)
	readBody(t, resp)
	if got := resp.Header.Get(xCacheHeader); got != "REFRESH" {
		t.Fatalf("refresh X-Cache = %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("upstream called %d times after refresh", calls.Load())
	}
}

func TestDispatchCacheDisabledMode(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	f.gw.SetCache(cache.NewMemoryCache(context.Background()))
	client := serveGateway(t, f.gw)

	for i := 0; i < 2; i++ {
		resp := doChat(t, client, configHeader(upstream.URL, `"cache":"disabled"`), chatBody)
		readBody(t, resp)
		if got := resp.Header.Get(xCacheHeader); got != "DISABLED" {
			t.Fatalf("X-Cache = %q", got)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("upstream called %d times", calls.Load())
	}
}

func TestDispatchInputHookDeny(t *testing.T) {
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"deny_request":true,"reason":"policy violation"}`))
	}))
	defer hookSrv.Close()

	f := newFixture(t, Options{})
	f.gw.SetHooks(hooks.NewExecutor(nil, nil, nil, time.Second))
	client := serveGateway(t, f.gw)

	extra := fmt.Sprintf(`"hooks":[{"id":"h1","type":"input","hook_provider":"http","config":{"url":%q}}]`, hookSrv.URL)
	resp := doChat(t, client, configHeader("http://unused", extra), chatBody)
	body := readBody(t, resp)

	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte("hook_denied")) || !bytes.Contains(body, []byte("policy violation")) {
		t.Fatalf("body = %s", body)
	}
}

func TestDispatchInputHookOverride(t *testing.T) {
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"request_body_override":{"model":"gpt-4o","messages":[{"role":"user","content":"OVERRIDDEN"}]}}`))
	}))
	defer hookSrv.Close()

	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	f.gw.SetHooks(hooks.NewExecutor(nil, nil, nil, time.Second))
	client := serveGateway(t, f.gw)

	extra := fmt.Sprintf(`"hooks":[{"id":"h1","type":"input","hook_provider":"http","config":{"url":%q}}]`, hookSrv.URL)
	resp := doChat(t, client, configHeader(upstream.URL, extra), chatBody)
	readBody(t, resp)

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(gotBody, []byte("OVERRIDDEN")) {
		t.Fatalf("upstream received original body: %s", gotBody)
	}
	if bytes.Contains(gotBody, []byte(`"hi"`)) {
		t.Fatalf("upstream body still carries the pre-hook content: %s", gotBody)
	}
}

func TestDispatchOutputHookOverride(t *testing.T) {
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response_body_override":{"id":"chatcmpl-123","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"REDACTED"},"finish_reason":"stop"}]}}`))
	}))
	defer hookSrv.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	f.gw.SetHooks(hooks.NewExecutor(nil, nil, nil, time.Second))
	client := serveGateway(t, f.gw)

	extra := fmt.Sprintf(`"hooks":[{"id":"h1","type":"output","hook_provider":"http","config":{"url":%q}}]`, hookSrv.URL)
	resp := doChat(t, client, configHeader(upstream.URL, extra), chatBody)
	body := readBody(t, resp)

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("REDACTED")) {
		t.Fatalf("client received un-overridden response: %s", body)
	}
	if bytes.Contains(body, []byte("hello there")) {
		t.Fatalf("client body still carries the upstream content: %s", body)
	}
}

func TestDispatchStreaming(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"hel"}}]}`,
			`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		}
		for _, fr := range frames {
			fmt.Fprintf(w, "data: %s\n\n", fr)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	client := serveGateway(t, f.gw)

	body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	resp := doChat(t, client, configHeader(upstream.URL, ""), body)
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}

	var payloads []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") {
			payloads = append(payloads, strings.TrimPrefix(line, "data: "))
		}
	}
	if len(payloads) != 3 {
		t.Fatalf("payloads = %v", payloads)
	}
	if payloads[len(payloads)-1] != "[DONE]" {
		t.Fatalf("missing terminator, got %q", payloads[len(payloads)-1])
	}
	// Pass-through frames get the provider stamp.
	if !strings.Contains(payloads[0], `"provider":"openai"`) {
		t.Fatalf("first frame = %s", payloads[0])
	}
}

func TestDispatchStreamingCacheReplay(t *testing.T) {
	f := newFixture(t, Options{})
	c := cache.NewMemoryCache(context.Background())
	f.gw.SetCache(c)
	client := serveGateway(t, f.gw)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	// Warm the cache with a buffered request.
	resp := doChat(t, client, configHeader(upstream.URL, ""), chatBody)
	readBody(t, resp)
	upstream.Close()

	// The streamed sibling replays the cached body as synthesized chunks.
	body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	resp = doChat(t, client, configHeader(upstream.URL, ""), body)
	data := readBody(t, resp)

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(xCacheHeader); got != "HIT" {
		t.Fatalf("X-Cache = %q", got)
	}
	text := string(data)
	if !strings.Contains(text, "chat.completion.chunk") {
		t.Fatalf("replay not chunked: %s", text)
	}
	if !strings.HasSuffix(strings.TrimSpace(text), "data: [DONE]") {
		t.Fatalf("replay missing terminator: %s", text)
	}
}

func TestDispatchToolCapture(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	tc := NewToolCapture(context.Background(), f.store, nil, nil)
	f.gw.SetToolCapture(tc)
	client := serveGateway(t, f.gw)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],` +
		`"tools":[{"type":"function","function":{"name":"get_weather","parameters":{"type":"object"}}}]}`
	resp := doChat(t, client, configHeader(upstream.URL, ""), body)
	readBody(t, resp)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	tc.Close()

	agent, err := f.store.GetAgentByName(context.Background(), "support-bot")
	if err != nil {
		t.Fatal(err)
	}
	tools, err := f.store.ListTools(context.Background(), agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "get_weather" {
		t.Fatalf("tools = %+v", tools)
	}
}

func TestDispatchStreamingToolCapture(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	tc := NewToolCapture(context.Background(), f.store, nil, nil)
	f.gw.SetToolCapture(tc)
	client := serveGateway(t, f.gw)

	body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}],` +
		`"tools":[{"type":"function","function":{"name":"get_weather","parameters":{"type":"object"}}}]}`
	resp := doChat(t, client, configHeader(upstream.URL, ""), body)
	readBody(t, resp)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	tc.Close()

	agent, err := f.store.GetAgentByName(context.Background(), "support-bot")
	if err != nil {
		t.Fatal(err)
	}
	tools, err := f.store.ListTools(context.Background(), agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "get_weather" {
		t.Fatalf("tools = %+v", tools)
	}
}

func TestDispatchToolCaptureKeyOrder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	tc := NewToolCapture(context.Background(), f.store, nil, nil)
	f.gw.SetToolCapture(tc)
	client := serveGateway(t, f.gw)

	// Identical tool declared with two different key orders.
	bodies := []string{
		`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],` +
			`"tools":[{"type":"function","function":{"name":"get_weather","parameters":{"type":"object"}}}]}`,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],` +
			`"tools":[{"function":{"parameters":{"type":"object"},"name":"get_weather"},"type":"function"}]}`,
	}
	for _, body := range bodies {
		resp := doChat(t, client, configHeader(upstream.URL, ""), body)
		readBody(t, resp)
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}
	tc.Close()

	agent, err := f.store.GetAgentByName(context.Background(), "support-bot")
	if err != nil {
		t.Fatal(err)
	}
	tools, err := f.store.ListTools(context.Background(), agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 {
		t.Fatalf("key-reordered declarations produced %d tool rows", len(tools))
	}
}

func TestDispatchCacheSemanticModeNeverWrites(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{})
	f.gw.SetCache(cache.NewMemoryCache(context.Background()))
	client := serveGateway(t, f.gw)

	for i := 0; i < 2; i++ {
		resp := doChat(t, client, configHeader(upstream.URL, `"cache":"semantic"`), chatBody)
		readBody(t, resp)
		if got := resp.Header.Get(xCacheHeader); got != "MISS" {
			t.Fatalf("request %d X-Cache = %q", i, got)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("upstream called %d times; semantic mode must not populate the exact cache", calls.Load())
	}
}

func TestDispatchAuthToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatFixture))
	}))
	defer upstream.Close()

	f := newFixture(t, Options{AuthToken: "gw-secret"})
	client := serveGateway(t, f.gw)

	resp := doChat(t, client, configHeader(upstream.URL, ""), chatBody)
	readBody(t, resp)
	if resp.StatusCode != 401 {
		t.Fatalf("status without token = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest("POST", "http://gw/v1/chat/completions", strings.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(reqconfig.HeaderPrimary, configHeader(upstream.URL, ""))
	req.Header.Set("Authorization", "Bearer gw-secret")
	resp2, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp2)
	if resp2.StatusCode != 200 {
		t.Fatalf("status with token = %d", resp2.StatusCode)
	}
}

func TestWriteDispatchErrorMapping(t *testing.T) {
	f := newFixture(t, Options{})

	cases := []struct {
		err    error
		status int
	}{
		{&adapter.UnsupportedFunctionError{Provider: "anthropic", Function: "moderate"}, 404},
		{&adapter.InvalidRequestError{Provider: "anthropic", Message: "bad"}, 422},
		{&adapter.ShapeError{Provider: "anthropic", Detail: "missing type"}, 502},
		{fmt.Errorf("wrapped: %w", adapter.ErrRetriesExhausted), 408},
		{fmt.Errorf("boom"), 502},
	}
	for _, tc := range cases {
		var ctx fasthttp.RequestCtx
		f.gw.writeDispatchError(&ctx, "anthropic", tc.err)
		if ctx.Response.StatusCode() != tc.status {
			t.Fatalf("err %v → status %d, want %d", tc.err, ctx.Response.StatusCode(), tc.status)
		}
	}
}

func TestParseBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
		" Bearer  x ": "x",
	}
	for in, want := range cases {
		if got := parseBearerToken(in); got != want {
			t.Fatalf("parseBearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
