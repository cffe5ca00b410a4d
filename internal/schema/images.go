package schema

type (
	// ImageGenerationRequest mirrors POST /v1/images/generations.
	ImageGenerationRequest struct {
		Prompt         string   `json:"prompt"`
		Model          string   `json:"model,omitempty"`
		N              *int     `json:"n,omitempty"`
		Size           string   `json:"size,omitempty"`
		Quality        string   `json:"quality,omitempty"`
		Style          string   `json:"style,omitempty"`
		ResponseFormat string   `json:"response_format,omitempty"`
		User           string   `json:"user,omitempty"`
		Metadata       Metadata `json:"metadata,omitempty"`
	}

	ImageData struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	}

	ImageGenerationResponse struct {
		Created int64       `json:"created"`
		Data    []ImageData `json:"data"`
	}
)
