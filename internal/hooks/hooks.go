// Package hooks executes the pre/post dispatch hooks declared in the
// per-request configuration. Hooks run in parallel; their logs keep input
// order; a failing hook never fails the parent request.
package hooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// Phases a hook can run in.
const (
	PhaseInput  = "input"
	PhaseOutput = "output"
)

// Result is the validated outcome of one hook invocation. A hook may rewrite
// the canonical request (input phase) or response (output phase) by returning
// the replacement document in the matching override field.
type Result struct {
	DenyRequest          bool            `json:"deny_request,omitempty"`
	Skipped              bool            `json:"skipped"`
	Reason               string          `json:"reason,omitempty"`
	Metadata             map[string]any  `json:"metadata,omitempty"`
	RequestBodyOverride  json.RawMessage `json:"request_body_override,omitempty"`
	ResponseBodyOverride json.RawMessage `json:"response_body_override,omitempty"`
}

// Log records one hook execution for the dispatch log.
type Log struct {
	HookID      string          `json:"hook_id,omitempty"`
	Hook        reqconfig.Hook  `json:"hook"`
	Result      Result          `json:"result"`
	CacheStatus cache.Status    `json:"cache_status"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	DurationMs  int64           `json:"duration"`
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

// Document is the JSON payload delivered to hook providers: the canonical
// request (and, for output hooks, the canonical response) of the dispatch
// under evaluation.
type Document struct {
	HookID       string          `json:"hook_id,omitempty"`
	Phase        string          `json:"phase"`
	FunctionName string          `json:"function_name"`
	AgentName    string          `json:"agent_name,omitempty"`
	SkillName    string          `json:"skill_name,omitempty"`
	Request      json.RawMessage `json:"request"`
	Response     json.RawMessage `json:"response,omitempty"`
}

// LLMInvoker dispatches an llm hook through the gateway's own provider
// engine. The pipeline supplies the implementation; config is the hook's
// provider configuration (model, target, prompt).
type LLMInvoker interface {
	InvokeHookLLM(ctx context.Context, config json.RawMessage, doc Document) (json.RawMessage, error)
}

// Invocation bundles everything Run needs for one dispatch's hooks.
type Invocation struct {
	Function     schema.FunctionName
	AgentName    string
	SkillName    string
	Hooks        []reqconfig.Hook
	RequestBody  []byte
	ResponseBody []byte // output phase only
	ForceRefresh bool   // bypass the hook cache for reads
}

// filterForPhase returns the hooks that run in phase for the invocation's
// function: embed-style functions run input hooks only.
func filterForPhase(inv *Invocation, phase string) []reqconfig.Hook {
	if phase == PhaseOutput && inv.Function.InputHooksOnly() {
		return nil
	}
	var out []reqconfig.Hook
	for _, h := range inv.Hooks {
		if h.Type == phase {
			out = append(out, h)
		}
	}
	return out
}

// Denied reports whether any awaited input hook denied the request, and
// returns the first denial's reason.
func Denied(logs []Log) (bool, string) {
	for _, l := range logs {
		if l.Hook.IsAwaited() && l.Result.DenyRequest {
			return true, l.Result.Reason
		}
	}
	return false, ""
}

// RequestOverride returns the replacement request body supplied by an awaited
// input hook. When several hooks override, the first in input order wins.
func RequestOverride(logs []Log) ([]byte, bool) {
	for _, l := range logs {
		if l.Hook.IsAwaited() && len(l.Result.RequestBodyOverride) > 0 {
			return l.Result.RequestBodyOverride, true
		}
	}
	return nil, false
}

// ResponseOverride returns the replacement response body supplied by an
// awaited output hook, first in input order.
func ResponseOverride(logs []Log) ([]byte, bool) {
	for _, l := range logs {
		if l.Hook.IsAwaited() && len(l.Result.ResponseBodyOverride) > 0 {
			return l.Result.ResponseBodyOverride, true
		}
	}
	return nil, false
}
