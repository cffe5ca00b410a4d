package adapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

func newGemini() *ProviderConfig {
	chatConfig := FunctionConfig{
		"messages": {
			{Param: "contents", Required: true, Transform: geminiContents},
			{Param: "systemInstruction", Transform: geminiSystem},
		},
		"temperature":       {{Param: "generationConfig.temperature", Min: floatPtr(0), Max: floatPtr(2)}},
		"top_p":             {{Param: "generationConfig.topP"}},
		"max_tokens":        {{Param: "generationConfig.maxOutputTokens"}},
		"stop":              {{Param: "generationConfig.stopSequences", Transform: anthropicStop}},
		"n":                 {{Param: "generationConfig.candidateCount"}},
		"presence_penalty":  {{Param: "generationConfig.presencePenalty"}},
		"frequency_penalty": {{Param: "generationConfig.frequencyPenalty"}},
		"seed":              {{Param: "generationConfig.seed"}},
		"tools":             {{Param: "tools", Transform: geminiTools}},
	}

	embedConfig := FunctionConfig{
		"input": {{Param: "content.parts", Required: true, Transform: geminiEmbedContent}},
	}

	return &ProviderConfig{
		Name:           "gemini",
		APIKeyRequired: true,
		BaseURL: func(target *reqconfig.Resolved, _ schema.FunctionName) (string, error) {
			if target.CustomHost != "" {
				return target.CustomHost, nil
			}
			return "https://generativelanguage.googleapis.com/v1beta", nil
		},
		Headers: func(target *reqconfig.Resolved) map[string]string {
			return map[string]string{
				"x-goog-api-key": target.APIKey,
				"Content-Type":   "application/json",
			}
		},
		Endpoint: func(fn schema.FunctionName, target *reqconfig.Resolved, _ []string) string {
			switch fn {
			case schema.FnChatComplete:
				return "/models/" + target.Model + ":generateContent"
			case schema.FnStreamChatComplete:
				return "/models/" + target.Model + ":streamGenerateContent?alt=sse"
			case schema.FnEmbed:
				return "/models/" + target.Model + ":embedContent"
			}
			return ""
		},
		Functions: map[schema.FunctionName]FunctionConfig{
			schema.FnChatComplete:       chatConfig,
			schema.FnStreamChatComplete: chatConfig,
			schema.FnEmbed:              embedConfig,
		},
		ResponseTransforms: map[schema.FunctionName]ResponseTransform{
			schema.FnChatComplete: {
				Kind: KindFullResponse,
				Full: geminiResponse,
			},
			schema.FnStreamChatComplete: {
				Kind:  KindStreamChunk,
				Chunk: geminiChunk,
			},
			schema.FnEmbed: {
				Kind: KindFullResponse,
				Full: geminiEmbedResponse,
			},
		},
	}
}

// geminiContents maps chat messages onto Gemini contents: roles collapse to
// user/model and text content becomes a parts array.
func geminiContents(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var out []map[string]any
	for _, m := range body.Get("messages").Array() {
		role := m.Get("role").String()
		if role == "system" {
			continue
		}
		if role == "assistant" {
			role = "model"
		} else {
			role = "user"
		}
		out = append(out, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Get("content").String()}},
		})
	}
	return out, nil
}

func geminiSystem(body gjson.Result, target *reqconfig.Resolved) (any, error) {
	sys, err := anthropicSystem(body, target)
	if err != nil || sys == nil {
		return nil, err
	}
	return map[string]any{"parts": []map[string]any{{"text": sys}}}, nil
}

func geminiTools(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var decls []map[string]any
	for _, t := range body.Get("tools").Array() {
		decls = append(decls, map[string]any{
			"name":        t.Get("function.name").String(),
			"description": t.Get("function.description").String(),
			"parameters":  t.Get("function.parameters").Value(),
		})
	}
	if decls == nil {
		return nil, nil
	}
	return []map[string]any{{"functionDeclarations": decls}}, nil
}

func geminiEmbedContent(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	in := body.Get("input")
	var parts []map[string]any
	if in.IsArray() {
		for _, s := range in.Array() {
			parts = append(parts, map[string]any{"text": s.String()})
		}
	} else {
		parts = append(parts, map[string]any{"text": in.String()})
	}
	return parts, nil
}

var geminiFinishReasons = map[string]string{
	"STOP":       "stop",
	"MAX_TOKENS": "length",
	"SAFETY":     "content_filter",
	"RECITATION": "content_filter",
}

func geminiFinish(reason string) string {
	if f, ok := geminiFinishReasons[reason]; ok {
		return f
	}
	return "stop"
}

func geminiCandidateText(candidate gjson.Result) string {
	text := ""
	for _, p := range candidate.Get("content.parts").Array() {
		text += p.Get("text").String()
	}
	return text
}

func geminiResponse(raw []byte, _ int, _ http.Header, tc TransformContext) ([]byte, error) {
	parsed := gjson.ParseBytes(raw)
	candidates := parsed.Get("candidates")
	if !candidates.Exists() {
		return nil, &ShapeError{Provider: "gemini", Detail: "no candidates in response"}
	}

	var choices []schema.ChatChoice
	for i, cand := range candidates.Array() {
		msg := schema.ChatMessage{
			Role:    "assistant",
			Content: schema.TextContent(geminiCandidateText(cand)),
		}
		for _, p := range cand.Get("content.parts").Array() {
			if fc := p.Get("functionCall"); fc.Exists() {
				args, _ := json.Marshal(fc.Get("args").Value())
				msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
					ID:       "call_" + uuid.New().String(),
					Type:     "function",
					Function: schema.ToolCallFunction{Name: fc.Get("name").String(), Arguments: string(args)},
				})
			}
		}
		finish := geminiFinish(cand.Get("finishReason").String())
		if len(msg.ToolCalls) > 0 {
			finish = "tool_calls"
		}
		choices = append(choices, schema.ChatChoice{Index: i, Message: msg, FinishReason: finish})
	}

	resp := schema.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   tc.Target.Model,
		Choices: choices,
		Usage: &schema.Usage{
			PromptTokens:     int(parsed.Get("usageMetadata.promptTokenCount").Int()),
			CompletionTokens: int(parsed.Get("usageMetadata.candidatesTokenCount").Int()),
			TotalTokens:      int(parsed.Get("usageMetadata.totalTokenCount").Int()),
		},
		Provider: "gemini",
	}
	return json.Marshal(resp)
}

// geminiChunk maps one streamGenerateContent SSE payload to a canonical
// chunk. Gemini frames carry whole candidate deltas; the first frame also
// produces the role chunk.
func geminiChunk(payload []byte, tc TransformContext) ([][]byte, error) {
	parsed := gjson.ParseBytes(payload)
	cand := parsed.Get("candidates.0")
	if !cand.Exists() {
		return nil, nil
	}

	id, _ := tc.State["id"].(string)
	if id == "" {
		id = "chatcmpl-" + uuid.New().String()
		tc.State["id"] = id
	}

	chunk := func(delta schema.ChunkDelta, finish *string) []byte {
		return schema.SSEFrameJSON(schema.ChatCompletionChunk{
			ID:       id,
			Object:   "chat.completion.chunk",
			Created:  time.Now().Unix(),
			Model:    tc.Target.Model,
			Provider: "gemini",
			Choices:  []schema.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		})
	}

	var frames [][]byte
	if _, started := tc.State["role_sent"]; !started {
		tc.State["role_sent"] = true
		frames = append(frames, chunk(schema.ChunkDelta{Role: "assistant"}, nil))
	}

	if text := geminiCandidateText(cand); text != "" {
		frames = append(frames, chunk(schema.ChunkDelta{Content: text}, nil))
	}

	if reason := cand.Get("finishReason").String(); reason != "" {
		finish := geminiFinish(reason)
		frames = append(frames, chunk(schema.ChunkDelta{}, &finish))
		frames = append(frames, []byte(schema.SSEDone))
	}
	return frames, nil
}

func geminiEmbedResponse(raw []byte, _ int, _ http.Header, tc TransformContext) ([]byte, error) {
	parsed := gjson.ParseBytes(raw)
	values := parsed.Get("embedding.values")
	if !values.Exists() {
		return nil, &ShapeError{Provider: "gemini", Detail: "no embedding in response"}
	}

	var vec []float64
	for _, v := range values.Array() {
		vec = append(vec, v.Float())
	}

	resp := schema.EmbeddingResponse{
		Object: "list",
		Model:  tc.Target.Model,
		Data: []schema.EmbeddingData{{
			Object:    "embedding",
			Index:     0,
			Embedding: vec,
		}},
		Provider: "gemini",
	}
	return json.Marshal(resp)
}
