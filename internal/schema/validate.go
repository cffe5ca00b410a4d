package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidationError describes a request body that failed its function's schema.
// Param names the offending field when known.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid request: %s: %s", e.Param, e.Message)
	}
	return "invalid request: " + e.Message
}

func invalid(param, format string, args ...any) *ValidationError {
	return &ValidationError{Param: param, Message: fmt.Sprintf(format, args...)}
}

// DecodeStrict unmarshals data into v rejecting unknown top-level fields.
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("", "%s", err.Error())
	}
	return nil
}

// ValidateRequest checks body against the request schema for fn. GET and
// DELETE functions with no body validate trivially. The decoded request is
// returned as the concrete schema type for downstream use.
func ValidateRequest(fn FunctionName, body []byte) (any, error) {
	switch fn {
	case FnChatComplete, FnStreamChatComplete:
		var req ChatCompletionRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if len(req.Messages) == 0 {
			return nil, invalid("messages", "at least one message is required")
		}
		for i, m := range req.Messages {
			if m.Role == "" {
				return nil, invalid(fmt.Sprintf("messages[%d].role", i), "field is required")
			}
		}
		if err := req.Metadata.Validate(); err != nil {
			return nil, invalid("metadata", "%s", err.Error())
		}
		return &req, nil

	case FnComplete, FnStreamComplete:
		var req CompletionRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if len(req.Prompt) == 0 {
			return nil, invalid("prompt", "field is required")
		}
		return &req, nil

	case FnEmbed:
		var req EmbeddingRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if len(req.Input) == 0 {
			return nil, invalid("input", "field is required")
		}
		return &req, nil

	case FnGenerateImage:
		var req ImageGenerationRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Prompt == "" {
			return nil, invalid("prompt", "field is required")
		}
		return &req, nil

	case FnModerate:
		var req ModerationRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if len(req.Input) == 0 {
			return nil, invalid("input", "field is required")
		}
		return &req, nil

	case FnCreateSpeech:
		var req SpeechRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if req.Input == "" {
			return nil, invalid("input", "field is required")
		}
		if req.Voice == "" {
			return nil, invalid("voice", "field is required")
		}
		return &req, nil

	case FnTranscribe:
		var req TranscriptionRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		return &req, nil

	case FnTranslate:
		var req TranslationRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		return &req, nil

	case FnCreateFineTuningJob:
		var req FineTuningJobRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if req.TrainingFile == "" {
			return nil, invalid("training_file", "field is required")
		}
		return &req, nil

	case FnCreateBatch:
		var req BatchRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.InputFileID == "" {
			return nil, invalid("input_file_id", "field is required")
		}
		if req.Endpoint == "" {
			return nil, invalid("endpoint", "field is required")
		}
		if req.CompletionWindow == "" {
			return nil, invalid("completion_window", "field is required")
		}
		return &req, nil

	case FnCreateModelResponse, FnStreamModelResponse:
		var req ResponsesRequest
		if err := DecodeStrict(body, &req); err != nil {
			return nil, err
		}
		if req.Model == "" {
			return nil, invalid("model", "field is required")
		}
		if len(req.Input) == 0 && req.Instructions == "" {
			return nil, invalid("input", "field is required")
		}
		return &req, nil

	case FnUploadFile:
		// Multipart upload; field validation happens at the form layer.
		return nil, nil

	case FnListFiles, FnRetrieveFile, FnDeleteFile, FnRetrieveFileContent,
		FnListFineTuningJobs, FnRetrieveFineTuningJob, FnCancelFineTuningJob, FnListFineTuningEvents,
		FnListBatches, FnRetrieveBatch, FnCancelBatch,
		FnGetModelResponse, FnDeleteModelResponse, FnListModels:
		// Bodyless functions.
		return nil, nil
	}

	return nil, invalid("", "unsupported function %q", string(fn))
}
