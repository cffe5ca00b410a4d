package reqconfig

import (
	"context"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/agent-gateway/internal/store"
)

func TestParseHeaderValid(t *testing.T) {
	raw := []byte(`{
		"agent_name": "support-bot",
		"skill_name": "triage",
		"targets": [{"provider": "openai", "model": "gpt-4o"}],
		"hooks": [{"type": "input", "hook_provider": "http", "config": {"url": "http://h"}}],
		"trace_id": "t-1",
		"force_refresh": true
	}`)

	rc, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if rc.AgentName != "support-bot" || rc.SkillName != "triage" {
		t.Fatalf("agent/skill = %q/%q", rc.AgentName, rc.SkillName)
	}
	if len(rc.Targets) != 1 || rc.Targets[0].Provider != "openai" {
		t.Fatalf("targets = %+v", rc.Targets)
	}
	if !rc.ForceRefresh || rc.ForceHookRefresh {
		t.Fatal("force flags not parsed")
	}
	if !rc.Hooks[0].IsAwaited() {
		t.Fatal("await should default to true")
	}
	if !rc.CacheEnabled() {
		t.Fatal("cache should default to enabled")
	}
}

func TestParseHeaderRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "{"},
		{"no targets", `{"agent_name":"a","skill_name":"s","targets":[]}`},
		{"both config and provider", `{"targets":[{"configuration_name":"c","provider":"openai","model":"m"}]}`},
		{"neither config nor provider", `{"targets":[{"model":"m"}]}`},
		{"provider without model", `{"targets":[{"provider":"openai"}]}`},
		{"bad hook type", `{"targets":[{"provider":"openai","model":"m"}],"hooks":[{"type":"before","hook_provider":"http"}]}`},
		{"bad hook provider", `{"targets":[{"provider":"openai","model":"m"}],"hooks":[{"type":"input","hook_provider":"grpc"}]}`},
		{"bad cache mode", `{"targets":[{"provider":"openai","model":"m"}],"cache":"always"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *ConfigError
			if !asConfigError(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if ce.Status != fasthttp.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", ce.Status)
			}
		})
	}
}

func asConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if ok {
		*target = ce
	}
	return ok
}

func TestFromRequestHeaderAliases(t *testing.T) {
	var h fasthttp.RequestHeader

	if got := FromRequestHeader(&h); len(got) != 0 {
		t.Fatalf("expected empty, got %q", got)
	}

	h.Set(HeaderAlias, "alias")
	if got := string(FromRequestHeader(&h)); got != "alias" {
		t.Fatalf("got %q", got)
	}

	h.Set(HeaderPrimary, "primary")
	if got := string(FromRequestHeader(&h)); got != "primary" {
		t.Fatalf("primary header must win, got %q", got)
	}
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{"name": "Ada", "tone": "formal"}

	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"no placeholders", "no placeholders"},
		{"Hello {{name}}", "Hello Ada"},
		{"Hello {{ name }}, be {{tone}}", "Hello Ada, be formal"},
		{"Missing {{unknown}} stays", "Missing {{unknown}} stays"},
		{"{{name}}{{name}}", "AdaAda"},
	}
	for _, tc := range cases {
		if got := RenderTemplate(tc.in, vars); got != tc.want {
			t.Fatalf("RenderTemplate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := RenderTemplate("Hello {{name}}", nil); got != "Hello {{name}}" {
		t.Fatalf("nil vars: got %q", got)
	}
}

type allowAllPolicy struct{ noKeyProviders map[string]bool }

func (p allowAllPolicy) IsAPIKeyRequired(provider string) bool {
	return !p.noKeyProviders[provider]
}

func newResolverFixture(t *testing.T) (*Resolver, store.Store, *store.Cipher, string) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	cipher, err := store.NewCipher("0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	agent := &store.Agent{Name: "support-bot"}
	if err := st.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	skill := &store.Skill{AgentID: agent.ID, Name: "triage"}
	if err := st.CreateSkill(ctx, skill); err != nil {
		t.Fatalf("CreateSkill: %v", err)
	}

	enc, err := cipher.Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	key := &store.ProviderAPIKey{Provider: "anthropic", EncryptedKey: enc}
	if err := st.CreateProviderAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateProviderAPIKey: %v", err)
	}
	model := &store.Model{ProviderAPIKeyID: key.ID, ModelName: "claude-3-haiku-20240307", ModelType: "text"}
	if err := st.CreateModel(ctx, model); err != nil {
		t.Fatalf("CreateModel: %v", err)
	}

	temp := 0.2
	cfg := &store.SkillConfiguration{
		SkillID: skill.ID,
		Name:    "default",
		Data: map[string]store.ConfigVersion{
			store.CurrentVersion: {Params: store.ConfigParams{
				ModelID:      model.ID,
				SystemPrompt: "You help {{name}}.",
				Temperature:  &temp,
			}},
			"v1": {Params: store.ConfigParams{ModelID: model.ID, SystemPrompt: "v1 prompt"}},
		},
	}
	if err := st.CreateConfiguration(ctx, cfg); err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	r := NewResolver(st, cipher, allowAllPolicy{})
	return r, st, cipher, skill.ID
}

func TestResolveConfiguration(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	ctx := context.Background()

	rc := &RequestConfig{Targets: []Target{{
		ConfigurationName: "default",
		SystemPromptVars:  map[string]string{"name": "Ada"},
	}}}

	res, err := r.Resolve(ctx, skillID, rc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Provider != "anthropic" {
		t.Fatalf("provider = %q", res.Provider)
	}
	if res.Model != "claude-3-haiku-20240307" {
		t.Fatalf("model = %q", res.Model)
	}
	if res.APIKey != "sk-secret" {
		t.Fatalf("api key = %q", res.APIKey)
	}
	if res.SystemPrompt != "You help Ada." {
		t.Fatalf("system prompt = %q", res.SystemPrompt)
	}
	if res.ConfigurationVersion != store.CurrentVersion {
		t.Fatalf("version = %q", res.ConfigurationVersion)
	}
	if res.Params.Temperature == nil || *res.Params.Temperature != 0.2 {
		t.Fatal("config params not carried through")
	}
}

func TestResolveNamedVersion(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	ctx := context.Background()

	rc := &RequestConfig{Targets: []Target{{
		ConfigurationName:    "default",
		ConfigurationVersion: "v1",
	}}}

	res, err := r.Resolve(ctx, skillID, rc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SystemPrompt != "v1 prompt" {
		t.Fatalf("system prompt = %q", res.SystemPrompt)
	}
}

func TestResolveAPIKeyOverride(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	ctx := context.Background()

	rc := &RequestConfig{Targets: []Target{{
		ConfigurationName: "default",
		APIKey:            "sk-override",
	}}}

	res, err := r.Resolve(ctx, skillID, rc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.APIKey != "sk-override" {
		t.Fatalf("api key = %q, want the request override", res.APIKey)
	}
}

func TestResolveInlineProvider(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	ctx := context.Background()

	rc := &RequestConfig{Targets: []Target{{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   "sk-inline",
	}}}

	res, err := r.Resolve(ctx, skillID, rc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Provider != "openai" || res.Model != "gpt-4o" || res.APIKey != "sk-inline" {
		t.Fatalf("resolved = %+v", res)
	}
	if res.ConfigurationName != "" {
		t.Fatal("inline target must not carry a configuration name")
	}
}

func TestResolveFailures(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		target     Target
		wantStatus int
	}{
		{"unknown configuration", Target{ConfigurationName: "missing"}, 422},
		{"unknown version", Target{ConfigurationName: "default", ConfigurationVersion: "v99"}, 422},
		{"inline without key", Target{Provider: "openai", Model: "gpt-4o"}, 422},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc := &RequestConfig{Targets: []Target{tc.target}}
			_, err := r.Resolve(ctx, skillID, rc)
			if err == nil {
				t.Fatal("expected error")
			}
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if ce.Status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", ce.Status, tc.wantStatus)
			}
		})
	}
}

func TestResolveKeyOptionalProvider(t *testing.T) {
	r, _, _, skillID := newResolverFixture(t)
	r.policy = allowAllPolicy{noKeyProviders: map[string]bool{"ollama": true}}
	ctx := context.Background()

	rc := &RequestConfig{Targets: []Target{{Provider: "ollama", Model: "llama3"}}}
	res, err := r.Resolve(ctx, skillID, rc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.APIKey != "" {
		t.Fatalf("api key = %q", res.APIKey)
	}
}
