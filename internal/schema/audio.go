package schema

type (
	// SpeechRequest mirrors POST /v1/audio/speech. The response is raw audio
	// bytes, passed through with the provider's content type.
	SpeechRequest struct {
		Model          string   `json:"model"`
		Input          string   `json:"input"`
		Voice          string   `json:"voice"`
		ResponseFormat string   `json:"response_format,omitempty"`
		Speed          *float64 `json:"speed,omitempty"`
		Instructions   string   `json:"instructions,omitempty"`
		Metadata       Metadata `json:"metadata,omitempty"`
	}

	// TranscriptionRequest captures the multipart form fields of
	// POST /v1/audio/transcriptions. The file part is carried out of band.
	TranscriptionRequest struct {
		Model          string   `json:"model"`
		Language       string   `json:"language,omitempty"`
		Prompt         string   `json:"prompt,omitempty"`
		ResponseFormat string   `json:"response_format,omitempty"`
		Temperature    *float64 `json:"temperature,omitempty"`
		Metadata       Metadata `json:"metadata,omitempty"`
	}

	// TranscriptionResponse is the json-format transcription result.
	TranscriptionResponse struct {
		Text     string  `json:"text"`
		Language string  `json:"language,omitempty"`
		Duration float64 `json:"duration,omitempty"`
	}

	// TranslationRequest mirrors POST /v1/audio/translations.
	TranslationRequest struct {
		Model          string   `json:"model"`
		Prompt         string   `json:"prompt,omitempty"`
		ResponseFormat string   `json:"response_format,omitempty"`
		Temperature    *float64 `json:"temperature,omitempty"`
		Metadata       Metadata `json:"metadata,omitempty"`
	}
)
