package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	return NewRedisCacheFromClient(cli), mr
}

func TestRedisCacheGetSet(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "absent"); ok {
		t.Fatal("expected miss for absent key")
	}

	if err := c.Set(ctx, "k1", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(val) != `{"a":1}` {
		t.Fatalf("got %q", val)
	}
}

func TestRedisCacheTTLExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestRedisCacheDefaultTTL(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ttl := mr.TTL("k1")
	if ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", ttl, DefaultTTL)
	}
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "k1", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(cli)
	ctx := context.Background()

	_ = c.Set(ctx, "k1", []byte("v"), time.Minute)
	mr.Close()

	// Backend gone: reads report misses, writes return nil.
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected miss when backend is down")
	}
	if err := c.Set(ctx, "k2", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set should degrade silently, got %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewMemoryCache(ctx)
	defer c.Close()

	if _, ok := c.Get(ctx, "absent"); ok {
		t.Fatal("expected miss for absent key")
	}

	_ = c.Set(ctx, "k1", []byte("v1"), time.Minute)
	val, ok := c.Get(ctx, "k1")
	if !ok || string(val) != "v1" {
		t.Fatalf("got (%q, %v)", val, ok)
	}

	_ = c.Set(ctx, "k2", []byte("v2"), -time.Second)
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	_ = c.Delete(ctx, "k1")
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(ctx)
	defer c.Close()

	c.entries["k1"] = memEntry{value: []byte("v"), deadline: time.Now().Add(-time.Second).UnixNano()}

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected miss for expired entry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted on access, Len = %d", c.Len())
	}
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(ctx)
	defer c.Close()

	_ = c.Set(ctx, "present", []byte("v"), time.Minute)

	cases := []struct {
		name         string
		cache        Cache
		key          string
		enabled      bool
		forceRefresh bool
		want         Status
	}{
		{"disabled mode", c, "present", false, false, StatusDisabled},
		{"nil cache", nil, "present", true, false, StatusDisabled},
		{"force refresh skips read", c, "present", true, true, StatusRefresh},
		{"hit", c, "present", true, false, StatusHit},
		{"miss", c, "absent", true, false, StatusMiss},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Lookup(ctx, tc.cache, tc.key, tc.enabled, tc.forceRefresh)
			if res.Status != tc.want {
				t.Fatalf("status = %s, want %s", res.Status, tc.want)
			}
			if res.Status == StatusHit && string(res.Value) != "v" {
				t.Fatalf("value = %q", res.Value)
			}
		})
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(schema.FnChatComplete, []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	b := Fingerprint(schema.FnChatComplete, []byte(`{"messages":[{"content":"hi","role":"user"}],"model":"gpt-4o"}`))
	if a != b {
		t.Fatal("key order must not change the fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint(schema.FnChatComplete, []byte(`{"model":"gpt-4o"}`))

	if got := Fingerprint(schema.FnComplete, []byte(`{"model":"gpt-4o"}`)); got == base {
		t.Fatal("function name must be part of the fingerprint")
	}
	if got := Fingerprint(schema.FnChatComplete, []byte(`{"model":"gpt-4o-mini"}`)); got == base {
		t.Fatal("body change must change the fingerprint")
	}
}

func TestHookFingerprint(t *testing.T) {
	hook := []byte(`{"type":"http","url":"http://h"}`)
	req := []byte(`{"model":"gpt-4o"}`)
	resp := []byte(`{"id":"cmpl-1"}`)

	in := HookFingerprint(schema.FnChatComplete, hook, req, nil)
	out := HookFingerprint(schema.FnChatComplete, hook, req, resp)
	if in == out {
		t.Fatal("output hook fingerprint must include the response body")
	}

	again := HookFingerprint(schema.FnChatComplete, hook, req, resp)
	if again != out {
		t.Fatal("hook fingerprint must be deterministic")
	}

	other := HookFingerprint(schema.FnChatComplete, []byte(`{"type":"http","url":"http://other"}`), req, resp)
	if other == out {
		t.Fatal("hook definition must be part of the fingerprint")
	}
}

func TestToolFingerprint(t *testing.T) {
	a := ToolFingerprint([]byte(`{"type":"function","function":{"name":"get_weather","parameters":{"type":"object"}}}`))
	b := ToolFingerprint([]byte(`{"function":{"parameters":{"type":"object"},"name":"get_weather"},"type":"function"}`))
	if a != b {
		t.Fatal("key order must not change the tool fingerprint")
	}

	c := ToolFingerprint([]byte(`{"type":"function","function":{"name":"get_forecast","parameters":{"type":"object"}}}`))
	if c == a {
		t.Fatal("different tools must fingerprint differently")
	}
}
