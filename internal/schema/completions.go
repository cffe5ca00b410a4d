package schema

import "encoding/json"

type (
	// CompletionRequest mirrors the legacy POST /v1/completions body.
	// Prompt accepts a string or an array of strings.
	CompletionRequest struct {
		Model            string          `json:"model"`
		Prompt           json.RawMessage `json:"prompt"`
		Suffix           string          `json:"suffix,omitempty"`
		Stream           bool            `json:"stream,omitempty"`
		StreamOptions    *StreamOptions  `json:"stream_options,omitempty"`
		Temperature      *float64        `json:"temperature,omitempty"`
		TopP             *float64        `json:"top_p,omitempty"`
		N                *int            `json:"n,omitempty"`
		MaxTokens        *int            `json:"max_tokens,omitempty"`
		FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
		PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
		Stop             json.RawMessage `json:"stop,omitempty"`
		Seed             *int64          `json:"seed,omitempty"`
		Logprobs         *int            `json:"logprobs,omitempty"`
		Echo             *bool           `json:"echo,omitempty"`
		BestOf           *int            `json:"best_of,omitempty"`
		User             string          `json:"user,omitempty"`
		Metadata         Metadata        `json:"metadata,omitempty"`
	}

	CompletionChoice struct {
		Index        int             `json:"index"`
		Text         string          `json:"text"`
		FinishReason string          `json:"finish_reason,omitempty"`
		Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	}

	// CompletionResponse mirrors the text_completion object. The same shape is
	// reused for streaming frames (object "text_completion" with partial text).
	CompletionResponse struct {
		ID      string             `json:"id"`
		Object  string             `json:"object"`
		Created int64              `json:"created"`
		Model   string             `json:"model"`
		Choices []CompletionChoice `json:"choices"`
		Usage   *Usage             `json:"usage,omitempty"`
	}
)

// PromptStrings normalises the prompt field to a slice of strings.
func (r *CompletionRequest) PromptStrings() []string {
	if len(r.Prompt) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(r.Prompt, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(r.Prompt, &many); err == nil {
		return many
	}
	return nil
}
