package schema

import "encoding/json"

type (
	// EmbeddingRequest mirrors POST /v1/embeddings. Input accepts a string,
	// an array of strings, or token arrays; tokens pass through untouched.
	EmbeddingRequest struct {
		Model          string          `json:"model"`
		Input          json.RawMessage `json:"input"`
		EncodingFormat string          `json:"encoding_format,omitempty"`
		Dimensions     *int            `json:"dimensions,omitempty"`
		User           string          `json:"user,omitempty"`
		Metadata       Metadata        `json:"metadata,omitempty"`
	}

	EmbeddingData struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}

	EmbeddingResponse struct {
		Object   string          `json:"object"`
		Data     []EmbeddingData `json:"data"`
		Model    string          `json:"model"`
		Usage    *Usage          `json:"usage,omitempty"`
		Provider string          `json:"provider,omitempty"`
	}
)

// InputStrings normalises the input field to a slice of strings. Returns nil
// when the input is token-encoded (arrays of ints) rather than text.
func (r *EmbeddingRequest) InputStrings() []string {
	if len(r.Input) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(r.Input, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(r.Input, &many); err == nil {
		return many
	}
	return nil
}
