package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/adapter"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// defaultHookPrompt instructs the evaluating model to answer with a hook
// result document.
const defaultHookPrompt = `You evaluate an AI gateway request. Reply with a single JSON object:
{"deny_request": <bool>, "reason": "<short explanation when denying>", "metadata": {}}
Reply with JSON only, no prose.`

// EngineInvoker runs llm hooks through the gateway's own adapter engine. The
// hook config selects the evaluating model:
//
//	{"provider": "openai", "model": "gpt-4o-mini", "api_key": "...", "prompt": "..."}
type EngineInvoker struct {
	engine *adapter.Engine
}

func NewEngineInvoker(e *adapter.Engine) *EngineInvoker {
	return &EngineInvoker{engine: e}
}

var _ hooks.LLMInvoker = (*EngineInvoker)(nil)

func (i *EngineInvoker) InvokeHookLLM(ctx context.Context, config json.RawMessage, doc hooks.Document) (json.RawMessage, error) {
	model := gjson.GetBytes(config, "model").String()
	if model == "" {
		return nil, fmt.Errorf("llm hook: model is required")
	}
	provider := gjson.GetBytes(config, "provider").String()
	if provider == "" {
		provider = "openai"
	}
	prompt := gjson.GetBytes(config, "prompt").String()
	if prompt == "" {
		prompt = defaultHookPrompt
	}

	target := &reqconfig.Resolved{
		Provider: provider,
		Model:    model,
		APIKey:   gjson.GetBytes(config, "api_key").String(),
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("llm hook: marshal document: %w", err)
	}
	body, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": prompt},
			{"role": "user", "content": string(docJSON)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm hook: marshal request: %w", err)
	}

	res, err := i.engine.Execute(ctx, schema.FnChatComplete, "POST", body, target, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("llm hook: %w", err)
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("llm hook: provider returned status %d", res.StatusCode)
	}

	content := gjson.GetBytes(res.Body, "choices.0.message.content").String()
	if content == "" {
		return nil, fmt.Errorf("llm hook: empty completion")
	}
	return json.RawMessage(stripCodeFence(content)), nil
}

// stripCodeFence unwraps a ```json ... ``` fenced answer; models add the
// fence despite the JSON-only instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
