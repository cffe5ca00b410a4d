package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

const anthropicVersion = "2023-06-01"

func floatPtr(f float64) *float64 { return &f }

func newAnthropic() *ProviderConfig {
	chatConfig := FunctionConfig{
		"model": {{Param: "model", Required: true}},
		"messages": {
			{Param: "messages", Required: true, Transform: anthropicMessages},
			{Param: "system", Transform: anthropicSystem},
		},
		"max_tokens":  {{Param: "max_tokens", Required: true, Default: 4096}},
		"temperature": {{Param: "temperature", Min: floatPtr(0), Max: floatPtr(1)}},
		"top_p":       {{Param: "top_p"}},
		"stop":        {{Param: "stop_sequences", Transform: anthropicStop}},
		"stream":      {{Param: "stream"}},
		"user":        {{Param: "metadata.user_id"}},
		"tools":       {{Param: "tools", Transform: anthropicTools}},
		"tool_choice": {{Param: "tool_choice", Transform: anthropicToolChoice}},
	}

	return &ProviderConfig{
		Name:           "anthropic",
		APIKeyRequired: true,
		BaseURL: func(target *reqconfig.Resolved, _ schema.FunctionName) (string, error) {
			if target.CustomHost != "" {
				return target.CustomHost, nil
			}
			return "https://api.anthropic.com", nil
		},
		Headers: func(target *reqconfig.Resolved) map[string]string {
			return map[string]string{
				"x-api-key":         target.APIKey,
				"anthropic-version": anthropicVersion,
				"Content-Type":      "application/json",
			}
		},
		Endpoint: func(fn schema.FunctionName, _ *reqconfig.Resolved, _ []string) string {
			switch fn {
			case schema.FnChatComplete, schema.FnStreamChatComplete:
				return "/v1/messages"
			}
			return ""
		},
		Functions: map[schema.FunctionName]FunctionConfig{
			schema.FnChatComplete:       chatConfig,
			schema.FnStreamChatComplete: chatConfig,
		},
		ResponseTransforms: map[schema.FunctionName]ResponseTransform{
			schema.FnChatComplete: {
				Kind: KindFullResponse,
				Full: anthropicResponse,
			},
			schema.FnStreamChatComplete: {
				Kind:  KindStreamChunk,
				Chunk: anthropicChunk,
			},
		},
	}
}

// anthropicMessages strips system messages (they move to the top-level
// system field) and flattens tool interplay into Anthropic's message shape.
func anthropicMessages(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var out []map[string]any
	for _, m := range body.Get("messages").Array() {
		role := m.Get("role").String()
		switch role {
		case "system":
			continue
		case "tool":
			out = append(out, map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": m.Get("tool_call_id").String(),
					"content":     m.Get("content").Value(),
				}},
			})
		case "assistant":
			msg := map[string]any{"role": "assistant"}
			var content []map[string]any
			if text := m.Get("content"); text.Exists() && text.Type == gjson.String && text.String() != "" {
				content = append(content, map[string]any{"type": "text", "text": text.String()})
			}
			for _, call := range m.Get("tool_calls").Array() {
				var input any
				args := call.Get("function.arguments").String()
				if args != "" {
					if err := json.Unmarshal([]byte(args), &input); err != nil {
						input = map[string]any{}
					}
				} else {
					input = map[string]any{}
				}
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    call.Get("id").String(),
					"name":  call.Get("function.name").String(),
					"input": input,
				})
			}
			if content == nil {
				msg["content"] = m.Get("content").Value()
			} else {
				msg["content"] = content
			}
			out = append(out, msg)
		default:
			out = append(out, map[string]any{
				"role":    role,
				"content": m.Get("content").Value(),
			})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("messages must contain at least one non-system message")
	}
	return out, nil
}

// anthropicSystem collects system messages into the top-level system string.
func anthropicSystem(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var sys string
	for _, m := range body.Get("messages").Array() {
		if m.Get("role").String() == "system" {
			if sys != "" {
				sys += "\n"
			}
			sys += m.Get("content").String()
		}
	}
	if sys == "" {
		return nil, nil
	}
	return sys, nil
}

// anthropicStop normalizes the string-or-array stop field to an array.
func anthropicStop(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	stop := body.Get("stop")
	if !stop.Exists() {
		return nil, nil
	}
	if stop.Type == gjson.String {
		return []string{stop.String()}, nil
	}
	var seqs []string
	for _, s := range stop.Array() {
		seqs = append(seqs, s.String())
	}
	return seqs, nil
}

func anthropicTools(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var out []map[string]any
	for _, t := range body.Get("tools").Array() {
		out = append(out, map[string]any{
			"name":         t.Get("function.name").String(),
			"description":  t.Get("function.description").String(),
			"input_schema": t.Get("function.parameters").Value(),
		})
	}
	if out == nil {
		return nil, nil
	}
	return out, nil
}

func anthropicToolChoice(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	tc := body.Get("tool_choice")
	if !tc.Exists() {
		return nil, nil
	}
	if tc.Type == gjson.String {
		switch tc.String() {
		case "auto":
			return map[string]any{"type": "auto"}, nil
		case "required":
			return map[string]any{"type": "any"}, nil
		case "none":
			return nil, nil
		}
		return nil, nil
	}
	if name := tc.Get("function.name"); name.Exists() {
		return map[string]any{"type": "tool", "name": name.String()}, nil
	}
	return nil, nil
}

var anthropicStopReasons = map[string]string{
	"end_turn":      "stop",
	"stop_sequence": "stop",
	"max_tokens":    "length",
	"tool_use":      "tool_calls",
}

// anthropicResponse maps an Anthropic messages response onto the canonical
// chat completion shape.
func anthropicResponse(raw []byte, _ int, _ http.Header, tc TransformContext) ([]byte, error) {
	parsed := gjson.ParseBytes(raw)
	if parsed.Get("type").String() != "message" {
		return nil, &ShapeError{Provider: "anthropic", Detail: "expected a message object"}
	}

	msg := schema.ChatMessage{Role: "assistant"}
	var text string
	for _, block := range parsed.Get("content").Array() {
		switch block.Get("type").String() {
		case "text":
			text += block.Get("text").String()
		case "tool_use":
			args, _ := json.Marshal(block.Get("input").Value())
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID:   block.Get("id").String(),
				Type: "function",
				Function: schema.ToolCallFunction{
					Name:      block.Get("name").String(),
					Arguments: string(args),
				},
			})
		}
	}
	msg.Content = schema.TextContent(text)

	finish := anthropicStopReasons[parsed.Get("stop_reason").String()]
	if finish == "" {
		finish = "stop"
	}

	resp := schema.ChatCompletionResponse{
		ID:      parsed.Get("id").String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   parsed.Get("model").String(),
		Choices: []schema.ChatChoice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage: &schema.Usage{
			PromptTokens:     int(parsed.Get("usage.input_tokens").Int()),
			CompletionTokens: int(parsed.Get("usage.output_tokens").Int()),
			TotalTokens:      int(parsed.Get("usage.input_tokens").Int() + parsed.Get("usage.output_tokens").Int()),
		},
		Provider: "anthropic",
	}
	_ = tc
	return json.Marshal(resp)
}

// anthropicChunk maps one Anthropic stream event onto canonical chunk
// frames. Message id and model are remembered across events via tc.State.
func anthropicChunk(payload []byte, tc TransformContext) ([][]byte, error) {
	ev := gjson.ParseBytes(payload)

	chunk := func(delta schema.ChunkDelta, finish *string) [][]byte {
		id, _ := tc.State["id"].(string)
		model, _ := tc.State["model"].(string)
		c := schema.ChatCompletionChunk{
			ID:       id,
			Object:   "chat.completion.chunk",
			Created:  time.Now().Unix(),
			Model:    model,
			Provider: "anthropic",
			Choices:  []schema.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		}
		return [][]byte{schema.SSEFrameJSON(c)}
	}

	switch ev.Get("type").String() {
	case "message_start":
		tc.State["id"] = ev.Get("message.id").String()
		tc.State["model"] = ev.Get("message.model").String()
		return chunk(schema.ChunkDelta{Role: "assistant"}, nil), nil

	case "content_block_start":
		if ev.Get("content_block.type").String() == "tool_use" {
			idx := int(ev.Get("index").Int())
			return chunk(schema.ChunkDelta{ToolCalls: []schema.ToolCall{{
				Index: &idx,
				ID:    ev.Get("content_block.id").String(),
				Type:  "function",
				Function: schema.ToolCallFunction{
					Name: ev.Get("content_block.name").String(),
				},
			}}}, nil), nil
		}
		return nil, nil

	case "content_block_delta":
		switch ev.Get("delta.type").String() {
		case "text_delta":
			return chunk(schema.ChunkDelta{Content: ev.Get("delta.text").String()}, nil), nil
		case "input_json_delta":
			idx := int(ev.Get("index").Int())
			return chunk(schema.ChunkDelta{ToolCalls: []schema.ToolCall{{
				Index: &idx,
				Function: schema.ToolCallFunction{
					Arguments: ev.Get("delta.partial_json").String(),
				},
			}}}, nil), nil
		}
		return nil, nil

	case "message_delta":
		finish := anthropicStopReasons[ev.Get("delta.stop_reason").String()]
		if finish == "" {
			finish = "stop"
		}
		return chunk(schema.ChunkDelta{}, &finish), nil

	case "message_stop":
		return [][]byte{[]byte(schema.SSEDone)}, nil
	}

	// ping, content_block_stop and unknown events produce nothing.
	return nil, nil
}
