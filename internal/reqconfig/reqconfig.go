// Package reqconfig parses the per-request configuration header and resolves
// it against stored skill configurations, models, and provider credentials
// into a validated dispatch target.
package reqconfig

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"
)

// Header names recognized for the per-request configuration. Both carry the
// same JSON payload and are treated as aliases; HeaderPrimary wins when both
// are present.
const (
	HeaderPrimary = "x-idk-config"
	HeaderAlias   = "ra-config"
)

// Target is one pre-processed dispatch target from the config header.
// Exactly one of ConfigurationName or Provider must be set.
type Target struct {
	ConfigurationName    string            `json:"configuration_name,omitempty"`
	ConfigurationVersion string            `json:"configuration_version,omitempty"`
	Provider             string            `json:"provider,omitempty"`
	Model                string            `json:"model,omitempty"`
	APIKey               string            `json:"api_key,omitempty"`
	SystemPromptVars     map[string]string `json:"system_prompt_variables,omitempty"`
	CustomHost           string            `json:"custom_host,omitempty"`
	AzureAIFoundryURL    string            `json:"azure_ai_foundry_url,omitempty"`
}

// Hook is one pre/post hook declaration from the config header.
type Hook struct {
	ID           string          `json:"id,omitempty"`
	Type         string          `json:"type"`          // "input" or "output"
	HookProvider string          `json:"hook_provider"` // "http" or "llm"
	Config       json.RawMessage `json:"config,omitempty"`
	Await        *bool           `json:"await,omitempty"`      // default true
	CacheMode    string          `json:"cache_mode,omitempty"` // "disabled", "simple", "semantic"
}

// IsAwaited reports whether the caller waits for this hook's result.
// Unset defaults to true.
func (h *Hook) IsAwaited() bool {
	return h.Await == nil || *h.Await
}

// RequestConfig is the parsed per-request configuration.
type RequestConfig struct {
	AgentName        string         `json:"agent_name"`
	SkillName        string         `json:"skill_name"`
	Targets          []Target       `json:"targets"`
	Hooks            []Hook         `json:"hooks,omitempty"`
	TraceID          string         `json:"trace_id,omitempty"`
	ParentSpanID     string         `json:"parent_span_id,omitempty"`
	SpanName         string         `json:"span_name,omitempty"`
	AppID            string         `json:"app_id,omitempty"`
	ExternalUserID   string         `json:"external_user_id,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	ForceRefresh     bool           `json:"force_refresh,omitempty"`
	ForceHookRefresh bool           `json:"force_hook_refresh,omitempty"`
	Cache            string         `json:"cache,omitempty"` // "disabled", "simple", "semantic"
}

// CacheEnabled reports whether the request cache participates in this
// request. The default mode is "simple".
func (rc *RequestConfig) CacheEnabled() bool {
	return rc.Cache != "disabled"
}

// CacheWritable reports whether a response may be written back to the cache.
// Only the simple (exact-match) mode persists entries; the semantic mode
// reads through existing entries but never writes.
func (rc *RequestConfig) CacheWritable() bool {
	return rc.Cache == "" || rc.Cache == "simple"
}

// ConfigError is a typed configuration failure carrying the HTTP status the
// gateway should respond with.
type ConfigError struct {
	Status  int
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func invalidf(format string, args ...any) *ConfigError {
	return &ConfigError{Status: fasthttp.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...)}
}

func internalf(format string, args ...any) *ConfigError {
	return &ConfigError{Status: fasthttp.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// ParseHeader parses raw (the JSON value of x-idk-config / ra-config) into a
// RequestConfig and validates its structural rules. Any failure is a
// 422 ConfigError.
func ParseHeader(raw []byte) (*RequestConfig, error) {
	if len(raw) == 0 {
		return nil, invalidf("missing request config header %q", HeaderPrimary)
	}

	var rc RequestConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, invalidf("invalid request config header: %v", err)
	}

	if len(rc.Targets) == 0 {
		return nil, invalidf("request config must declare at least one target")
	}

	for i := range rc.Targets {
		t := &rc.Targets[i]
		hasConfig := t.ConfigurationName != ""
		hasProvider := t.Provider != ""
		switch {
		case hasConfig && hasProvider:
			return nil, invalidf("target %d: configuration_name and provider are mutually exclusive", i)
		case !hasConfig && !hasProvider:
			return nil, invalidf("target %d: exactly one of configuration_name or provider is required", i)
		case hasProvider && t.Model == "":
			return nil, invalidf("target %d: model is required when provider is set", i)
		}
	}

	for i := range rc.Hooks {
		h := &rc.Hooks[i]
		if h.Type != "input" && h.Type != "output" {
			return nil, invalidf("hook %d: type must be input or output, got %q", i, h.Type)
		}
		if h.HookProvider != "http" && h.HookProvider != "llm" {
			return nil, invalidf("hook %d: hook_provider must be http or llm, got %q", i, h.HookProvider)
		}
	}

	switch rc.Cache {
	case "", "disabled", "simple", "semantic":
	default:
		return nil, invalidf("cache mode must be disabled, simple or semantic, got %q", rc.Cache)
	}

	return &rc, nil
}

// FromRequestHeader extracts the config header value from a fasthttp request,
// honouring both header aliases.
func FromRequestHeader(h *fasthttp.RequestHeader) []byte {
	if v := h.Peek(HeaderPrimary); len(v) > 0 {
		return v
	}
	return h.Peek(HeaderAlias)
}
