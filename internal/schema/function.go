// Package schema defines the canonical, OpenAI-compatible request and response
// shapes that form the gateway's public contract, together with strict
// validators and the SSE frame helpers used for streaming.
//
// Provider adapters translate between these canonical shapes and each
// provider's wire format; nothing outside this package defines client-visible
// JSON for the /v1 surface.
package schema

// FunctionName identifies one of the canonical dispatch kinds the gateway
// understands. The classifier maps (method, path, stream) to a FunctionName;
// adapters declare per-function parameter maps keyed by it.
type FunctionName string

const (
	FnChatComplete       FunctionName = "chat_complete"
	FnStreamChatComplete FunctionName = "stream_chat_complete"
	FnComplete           FunctionName = "complete"
	FnStreamComplete     FunctionName = "stream_complete"
	FnEmbed              FunctionName = "embed"
	FnGenerateImage      FunctionName = "generate_image"
	FnModerate           FunctionName = "moderate"
	FnCreateSpeech       FunctionName = "create_speech"
	FnTranscribe         FunctionName = "create_transcription"
	FnTranslate          FunctionName = "create_translation"

	FnUploadFile          FunctionName = "upload_file"
	FnListFiles           FunctionName = "list_files"
	FnRetrieveFile        FunctionName = "retrieve_file"
	FnDeleteFile          FunctionName = "delete_file"
	FnRetrieveFileContent FunctionName = "retrieve_file_content"

	FnCreateFineTuningJob   FunctionName = "create_fine_tuning_job"
	FnListFineTuningJobs    FunctionName = "list_fine_tuning_jobs"
	FnRetrieveFineTuningJob FunctionName = "retrieve_fine_tuning_job"
	FnCancelFineTuningJob   FunctionName = "cancel_fine_tuning_job"
	FnListFineTuningEvents  FunctionName = "list_fine_tuning_events"

	FnCreateBatch   FunctionName = "create_batch"
	FnListBatches   FunctionName = "list_batches"
	FnRetrieveBatch FunctionName = "retrieve_batch"
	FnCancelBatch   FunctionName = "cancel_batch"

	FnCreateModelResponse FunctionName = "create_model_response"
	FnStreamModelResponse FunctionName = "stream_model_response"
	FnGetModelResponse    FunctionName = "get_model_response"
	FnDeleteModelResponse FunctionName = "delete_model_response"

	FnListModels FunctionName = "list_models"

	// FnUnknown is the zero value returned when no classifier row matches.
	FnUnknown FunctionName = ""
)

// IsStreaming reports whether the function delivers its response as SSE.
func (f FunctionName) IsStreaming() bool {
	switch f {
	case FnStreamChatComplete, FnStreamComplete, FnStreamModelResponse:
		return true
	}
	return false
}

// NonStreamingVariant returns the non-streaming sibling of a streaming
// function, or the function itself when it is not streaming. Cache keys use
// the non-streaming name so that a streamed and a buffered request for the
// same body never collide.
func (f FunctionName) NonStreamingVariant() FunctionName {
	switch f {
	case FnStreamChatComplete:
		return FnChatComplete
	case FnStreamComplete:
		return FnComplete
	case FnStreamModelResponse:
		return FnCreateModelResponse
	}
	return f
}

// InputHooksOnly reports whether only input hooks apply to this function.
// Embedding responses carry raw vectors that output hooks cannot sensibly
// rewrite, so they run input hooks only.
func (f FunctionName) InputHooksOnly() bool {
	return f == FnEmbed
}
