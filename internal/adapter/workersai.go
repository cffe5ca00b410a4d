package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// workersAccountRe extracts the account id from a Cloudflare custom host
// like https://api.cloudflare.com/client/v4/accounts/<id>/ai.
var workersAccountRe = regexp.MustCompile(`accounts/([^/]+)`)

func newWorkersAI() *ProviderConfig {
	chatConfig := FunctionConfig{
		"messages":    {{Param: "messages", Required: true, Transform: workersMessages}},
		"temperature": {{Param: "temperature", Min: floatPtr(0), Max: floatPtr(5)}},
		"top_p":       {{Param: "top_p"}},
		"max_tokens":  {{Param: "max_tokens"}},
		"seed":        {{Param: "seed"}},
	}

	return &ProviderConfig{
		Name:           "workers_ai",
		APIKeyRequired: true,
		BaseURL: func(target *reqconfig.Resolved, _ schema.FunctionName) (string, error) {
			account := workersAccount(target)
			if account == "" {
				return "", fmt.Errorf("workers_ai requires an account id via custom_host or the account_id custom field")
			}
			return "https://api.cloudflare.com/client/v4/accounts/" + account + "/ai", nil
		},
		Headers: bearerHeaders,
		Endpoint: func(fn schema.FunctionName, target *reqconfig.Resolved, _ []string) string {
			switch fn {
			case schema.FnChatComplete, schema.FnStreamChatComplete:
				return "/run/" + target.Model
			case schema.FnEmbed:
				return "/run/" + target.Model
			}
			return ""
		},
		ValidateCustomFields: func(target *reqconfig.Resolved) error {
			if workersAccount(target) == "" {
				return fmt.Errorf("missing Cloudflare account id")
			}
			return nil
		},
		Functions: map[schema.FunctionName]FunctionConfig{
			schema.FnChatComplete:       chatConfig,
			schema.FnStreamChatComplete: chatConfig,
			schema.FnEmbed: {
				"input": {{Param: "text", Required: true, Transform: workersEmbedInput}},
			},
		},
		ResponseTransforms: map[schema.FunctionName]ResponseTransform{
			schema.FnChatComplete: {
				Kind: KindFullResponse,
				Full: workersResponse,
			},
			// Workers AI answers with a complete JSON body; streaming is
			// synthesized by re-chunking it.
			schema.FnStreamChatComplete: {
				Kind: KindJSONToStream,
				Body: workersBodyToChunks,
			},
			schema.FnEmbed: {
				Kind: KindFullResponse,
				Full: workersEmbedResponse,
			},
		},
	}
}

func workersAccount(target *reqconfig.Resolved) string {
	if target.CustomHost != "" {
		if m := workersAccountRe.FindStringSubmatch(target.CustomHost); m != nil {
			return m[1]
		}
	}
	return target.CustomFields["account_id"]
}

// workersMessages flattens content parts to plain strings; Workers AI text
// models accept string content only.
func workersMessages(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	var out []map[string]any
	for _, m := range body.Get("messages").Array() {
		content := m.Get("content")
		text := content.String()
		if content.IsArray() {
			text = ""
			for _, p := range content.Array() {
				if p.Get("type").String() == "text" {
					text += p.Get("text").String()
				}
			}
		}
		out = append(out, map[string]any{
			"role":    m.Get("role").String(),
			"content": text,
		})
	}
	return out, nil
}

func workersEmbedInput(body gjson.Result, _ *reqconfig.Resolved) (any, error) {
	in := body.Get("input")
	if in.IsArray() {
		var texts []string
		for _, s := range in.Array() {
			texts = append(texts, s.String())
		}
		return texts, nil
	}
	return in.String(), nil
}

// workersCanonical converts the Workers AI result envelope into a canonical
// chat completion.
func workersCanonical(raw []byte, model string) (*schema.ChatCompletionResponse, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.Get("success").Bool() {
		return nil, &ShapeError{Provider: "workers_ai", Detail: "success=false in result envelope"}
	}
	text := parsed.Get("result.response")
	if !text.Exists() {
		return nil, &ShapeError{Provider: "workers_ai", Detail: "no result.response in body"}
	}

	return &schema.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []schema.ChatChoice{{
			Index:        0,
			Message:      schema.ChatMessage{Role: "assistant", Content: schema.TextContent(text.String())},
			FinishReason: "stop",
		}},
		Usage: &schema.Usage{
			PromptTokens:     int(parsed.Get("result.usage.prompt_tokens").Int()),
			CompletionTokens: int(parsed.Get("result.usage.completion_tokens").Int()),
			TotalTokens:      int(parsed.Get("result.usage.total_tokens").Int()),
		},
		Provider: "workers_ai",
	}, nil
}

func workersResponse(raw []byte, _ int, _ http.Header, tc TransformContext) ([]byte, error) {
	resp, err := workersCanonical(raw, tc.Target.Model)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func workersBodyToChunks(raw []byte, tc TransformContext) ([][]byte, error) {
	resp, err := workersCanonical(raw, tc.Target.Model)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return ChunksFromResponse(body, "workers_ai")
}

func workersEmbedResponse(raw []byte, _ int, _ http.Header, tc TransformContext) ([]byte, error) {
	parsed := gjson.ParseBytes(raw)
	data := parsed.Get("result.data")
	if !data.Exists() {
		return nil, &ShapeError{Provider: "workers_ai", Detail: "no result.data in embedding body"}
	}

	var out []schema.EmbeddingData
	for i, row := range data.Array() {
		var vec []float64
		for _, v := range row.Array() {
			vec = append(vec, v.Float())
		}
		out = append(out, schema.EmbeddingData{Object: "embedding", Index: i, Embedding: vec})
	}

	resp := schema.EmbeddingResponse{
		Object:   "list",
		Model:    tc.Target.Model,
		Data:     out,
		Provider: "workers_ai",
	}
	return json.Marshal(resp)
}
