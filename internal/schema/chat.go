package schema

import "encoding/json"

type (
	// ChatMessage is a single conversation turn. Content is kept as raw JSON
	// because the OpenAI surface accepts either a string or an array of typed
	// content parts (text, image_url, input_audio); provider-specific vision
	// formats pass through untouched.
	ChatMessage struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content,omitempty"`
		Name       string          `json:"name,omitempty"`
		ToolCallID string          `json:"tool_call_id,omitempty"`
		ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	}

	// Tool is a declared function tool.
	Tool struct {
		Type     string       `json:"type"`
		Function ToolFunction `json:"function"`
	}

	ToolFunction struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
		Strict      *bool           `json:"strict,omitempty"`
	}

	// ToolCall is a model-issued call to a declared tool.
	ToolCall struct {
		ID       string           `json:"id,omitempty"`
		Type     string           `json:"type,omitempty"`
		Index    *int             `json:"index,omitempty"`
		Function ToolCallFunction `json:"function"`
	}

	ToolCallFunction struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	}

	// StreamOptions mirrors the OpenAI stream_options object.
	StreamOptions struct {
		IncludeUsage bool `json:"include_usage,omitempty"`
	}

	// ResponseFormat selects plain text, json_object, or json_schema output.
	ResponseFormat struct {
		Type       string          `json:"type"`
		JSONSchema json.RawMessage `json:"json_schema,omitempty"`
	}

	// ChatCompletionRequest mirrors POST /v1/chat/completions.
	ChatCompletionRequest struct {
		Model               string          `json:"model"`
		Messages            []ChatMessage   `json:"messages"`
		Stream              bool            `json:"stream,omitempty"`
		StreamOptions       *StreamOptions  `json:"stream_options,omitempty"`
		Temperature         *float64        `json:"temperature,omitempty"`
		TopP                *float64        `json:"top_p,omitempty"`
		N                   *int            `json:"n,omitempty"`
		MaxTokens           *int            `json:"max_tokens,omitempty"`
		MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
		FrequencyPenalty    *float64        `json:"frequency_penalty,omitempty"`
		PresencePenalty     *float64        `json:"presence_penalty,omitempty"`
		Stop                json.RawMessage `json:"stop,omitempty"`
		Seed                *int64          `json:"seed,omitempty"`
		Logprobs            *bool           `json:"logprobs,omitempty"`
		TopLogprobs         *int            `json:"top_logprobs,omitempty"`
		LogitBias           map[string]int  `json:"logit_bias,omitempty"`
		Tools               []Tool          `json:"tools,omitempty"`
		ToolChoice          json.RawMessage `json:"tool_choice,omitempty"`
		ParallelToolCalls   *bool           `json:"parallel_tool_calls,omitempty"`
		ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`
		ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
		User                string          `json:"user,omitempty"`
		Metadata            Metadata        `json:"metadata,omitempty"`
	}

	// Usage is the token accounting block shared by most responses.
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens,omitempty"`
		TotalTokens      int `json:"total_tokens"`
	}

	// ChatChoice is one generated alternative in a chat completion.
	ChatChoice struct {
		Index        int             `json:"index"`
		Message      ChatMessage     `json:"message"`
		FinishReason string          `json:"finish_reason,omitempty"`
		Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	}

	// ChatCompletionResponse mirrors the OpenAI chat.completion object.
	ChatCompletionResponse struct {
		ID                string       `json:"id"`
		Object            string       `json:"object"`
		Created           int64        `json:"created"`
		Model             string       `json:"model"`
		Choices           []ChatChoice `json:"choices"`
		Usage             *Usage       `json:"usage,omitempty"`
		SystemFingerprint string       `json:"system_fingerprint,omitempty"`
		Provider          string       `json:"provider,omitempty"`
	}

	// ChunkDelta is the incremental message fragment inside a streaming chunk.
	ChunkDelta struct {
		Role      string     `json:"role,omitempty"`
		Content   string     `json:"content,omitempty"`
		ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	}

	// ChunkChoice is one choice inside a chat.completion.chunk frame.
	ChunkChoice struct {
		Index        int        `json:"index"`
		Delta        ChunkDelta `json:"delta"`
		FinishReason *string    `json:"finish_reason"`
	}

	// ChatCompletionChunk mirrors the OpenAI chat.completion.chunk object.
	ChatCompletionChunk struct {
		ID       string        `json:"id"`
		Object   string        `json:"object"`
		Created  int64         `json:"created"`
		Model    string        `json:"model"`
		Choices  []ChunkChoice `json:"choices"`
		Usage    *Usage        `json:"usage,omitempty"`
		Provider string        `json:"provider,omitempty"`
	}
)

// ContentText extracts the plain-text content of a message. Array-of-parts
// content returns the concatenation of its text parts; non-text parts are
// ignored.
func (m ChatMessage) ContentText() string {
	if len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return ""
	}
	out := ""
	for _, p := range parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// TextContent wraps a plain string as raw message content.
func TextContent(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
