package schema

import "encoding/json"

type (
	// ResponsesRequest mirrors POST /v1/responses (the Responses API).
	// Input accepts a string or a list of input items; items pass through.
	ResponsesRequest struct {
		Model             string          `json:"model"`
		Input             json.RawMessage `json:"input"`
		Instructions      string          `json:"instructions,omitempty"`
		Stream            bool            `json:"stream,omitempty"`
		Temperature       *float64        `json:"temperature,omitempty"`
		TopP              *float64        `json:"top_p,omitempty"`
		MaxOutputTokens   *int            `json:"max_output_tokens,omitempty"`
		Tools             json.RawMessage `json:"tools,omitempty"`
		ToolChoice        json.RawMessage `json:"tool_choice,omitempty"`
		ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
		PreviousResponse  string          `json:"previous_response_id,omitempty"`
		Reasoning         json.RawMessage `json:"reasoning,omitempty"`
		Store             *bool           `json:"store,omitempty"`
		Truncation        string          `json:"truncation,omitempty"`
		User              string          `json:"user,omitempty"`
		Metadata          Metadata        `json:"metadata,omitempty"`
	}

	// ResponsesResponse mirrors the response object. Output items are kept
	// raw; the gateway inspects them only for tool capture.
	ResponsesResponse struct {
		ID         string            `json:"id"`
		Object     string            `json:"object"`
		CreatedAt  int64             `json:"created_at"`
		Status     string            `json:"status"`
		Model      string            `json:"model"`
		Output     []json.RawMessage `json:"output"`
		OutputText string            `json:"output_text,omitempty"`
		Error      json.RawMessage   `json:"error,omitempty"`
		Usage      json.RawMessage   `json:"usage,omitempty"`
		Metadata   Metadata          `json:"metadata,omitempty"`
	}
)

// ResponsesTools decodes the declared tools of a Responses API request.
// Responses-API tools are flat objects ({type, name, parameters, ...}) rather
// than the nested chat-completions shape.
func (r *ResponsesRequest) ResponsesTools() []ToolFunction {
	if len(r.Tools) == 0 {
		return nil
	}
	var flat []struct {
		Type        string          `json:"type"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(r.Tools, &flat); err != nil {
		return nil
	}
	out := make([]ToolFunction, 0, len(flat))
	for _, t := range flat {
		if t.Type != "function" || t.Name == "" {
			continue
		}
		out = append(out, ToolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return out
}
