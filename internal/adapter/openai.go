package adapter

import (
	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// openAIEndpoints maps each FunctionName to its path on the OpenAI surface.
// Entries with %s expand the first positional path parameter.
var openAIEndpoints = map[schema.FunctionName]string{
	schema.FnChatComplete:       "/chat/completions",
	schema.FnStreamChatComplete: "/chat/completions",
	schema.FnComplete:           "/completions",
	schema.FnStreamComplete:     "/completions",
	schema.FnEmbed:              "/embeddings",
	schema.FnGenerateImage:      "/images/generations",
	schema.FnModerate:           "/moderations",
	schema.FnCreateSpeech:       "/audio/speech",
	schema.FnTranscribe:         "/audio/transcriptions",
	schema.FnTranslate:          "/audio/translations",

	schema.FnUploadFile:          "/files",
	schema.FnListFiles:           "/files",
	schema.FnRetrieveFile:        "/files/%s",
	schema.FnDeleteFile:          "/files/%s",
	schema.FnRetrieveFileContent: "/files/%s/content",

	schema.FnCreateFineTuningJob:   "/fine_tuning/jobs",
	schema.FnListFineTuningJobs:    "/fine_tuning/jobs",
	schema.FnRetrieveFineTuningJob: "/fine_tuning/jobs/%s",
	schema.FnCancelFineTuningJob:   "/fine_tuning/jobs/%s/cancel",
	schema.FnListFineTuningEvents:  "/fine_tuning/jobs/%s/events",

	schema.FnCreateBatch:   "/batches",
	schema.FnListBatches:   "/batches",
	schema.FnRetrieveBatch: "/batches/%s",
	schema.FnCancelBatch:   "/batches/%s/cancel",

	schema.FnCreateModelResponse: "/responses",
	schema.FnStreamModelResponse: "/responses",
	schema.FnGetModelResponse:    "/responses/%s",
	schema.FnDeleteModelResponse: "/responses/%s",

	schema.FnListModels: "/models",
}

// expandEndpoint substitutes the positional path parameter into an endpoint
// pattern. Patterns without %s ignore params.
func expandEndpoint(pattern string, params []string) string {
	if pattern == "" {
		return ""
	}
	out := make([]byte, 0, len(pattern)+16)
	i := 0
	for j := 0; j < len(pattern); j++ {
		if pattern[j] == '%' && j+1 < len(pattern) && pattern[j+1] == 's' {
			if i >= len(params) {
				return "" // pattern needs a param the route did not capture
			}
			out = append(out, params[i]...)
			i++
			j++
			continue
		}
		out = append(out, pattern[j])
	}
	return string(out)
}

func bearerHeaders(target *reqconfig.Resolved) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if target.APIKey != "" {
		h["Authorization"] = "Bearer " + target.APIKey
	}
	return h
}

// newOpenAI builds the OpenAI adapter. The canonical surface is OpenAI's, so
// every function passes through verbatim; only model capability quirks apply.
func newOpenAI() *ProviderConfig {
	pc := newOpenAICompatible("openai", "https://api.openai.com/v1")

	// o-series reasoning models take max_completion_tokens and pin
	// temperature server-side.
	pc.ModelCaps = []ModelCapability{
		{
			Match:       isReasoningModel,
			Remap:       map[string]string{"max_tokens": "max_completion_tokens"},
			Unsupported: []string{"temperature", "top_p", "presence_penalty", "frequency_penalty"},
		},
	}
	pc.MultipartFunctions = map[schema.FunctionName]bool{
		schema.FnUploadFile: true,
		schema.FnTranscribe: true,
		schema.FnTranslate:  true,
	}
	return pc
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// newOpenAICompatible builds an adapter for a provider that speaks the
// OpenAI wire format at a different base URL. Functions absent from
// openAICompatFunctions are unsupported.
func newOpenAICompatible(name, baseURL string) *ProviderConfig {
	return &ProviderConfig{
		Name:           name,
		APIKeyRequired: true,
		BaseURL: func(target *reqconfig.Resolved, _ schema.FunctionName) (string, error) {
			if target.CustomHost != "" {
				return target.CustomHost, nil
			}
			return baseURL, nil
		},
		Headers: bearerHeaders,
		Endpoint: func(fn schema.FunctionName, _ *reqconfig.Resolved, params []string) string {
			return expandEndpoint(openAIEndpoints[fn], params)
		},
		// nil Functions entries: canonical bodies are already the provider's
		// wire format.
		Functions: map[schema.FunctionName]FunctionConfig{},
	}
}
