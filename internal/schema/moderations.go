package schema

import "encoding/json"

type (
	// ModerationRequest mirrors POST /v1/moderations. Input accepts a string,
	// an array of strings, or an array of multimodal parts.
	ModerationRequest struct {
		Input    json.RawMessage `json:"input"`
		Model    string          `json:"model,omitempty"`
		Metadata Metadata        `json:"metadata,omitempty"`
	}

	ModerationResult struct {
		Flagged                   bool               `json:"flagged"`
		Categories                map[string]bool    `json:"categories"`
		CategoryScores            map[string]float64 `json:"category_scores"`
		CategoryAppliedInputTypes json.RawMessage    `json:"category_applied_input_types,omitempty"`
	}

	ModerationResponse struct {
		ID      string             `json:"id"`
		Model   string             `json:"model"`
		Results []ModerationResult `json:"results"`
	}
)
