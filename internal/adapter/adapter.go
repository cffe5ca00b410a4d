// Package adapter implements the declarative provider adapter engine: a
// parameter-mapping system that converts canonical request bodies into
// provider-specific wire bodies and provider responses back into canonical
// bodies, including streaming chunk translation.
//
// Each provider contributes a ProviderConfig: base URL / header / endpoint
// functions plus, per function, a map from canonical field names to
// ParameterConfig entries. The engine interprets those maps; providers never
// hand-build request bodies.
package adapter

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// ParameterConfig describes how one canonical field maps onto one provider
// field. A canonical field may carry several ParameterConfigs when it fans
// out to multiple provider fields.
type ParameterConfig struct {
	// Param is the provider-side field name. Dotted paths address nested
	// fields ("generationConfig.temperature").
	Param string

	// Required marks a provider field that must be present after mapping.
	Required bool

	// Default is assigned when the canonical field is absent from the
	// request body.
	Default any

	// Min and Max clamp numeric values into the provider's accepted range.
	Min, Max *float64

	// Transform derives the provider value from the full canonical request
	// body instead of copying the canonical field verbatim.
	Transform func(body gjson.Result, target *reqconfig.Resolved) (any, error)
}

// FunctionConfig maps canonical field names to their provider mappings for
// one FunctionName. A nil FunctionConfig in ProviderConfig.Functions means
// the provider accepts the canonical body verbatim (OpenAI-compatible).
type FunctionConfig map[string][]ParameterConfig

// ModelCapability adjusts the mapped body for models with diverging
// parameter support. The first entry whose Match matches the model applies.
type ModelCapability struct {
	Match func(model string) bool

	// Unsupported provider fields are dropped with a warning.
	Unsupported []string

	// Remap renames provider fields (e.g. max_tokens → max_completion_tokens).
	Remap map[string]string

	// Scale linearly rescales a numeric field from [FromMin,FromMax] to
	// [ToMin,ToMax].
	Scale map[string]RangeMap
}

// RangeMap is a linear range conversion for one numeric field.
type RangeMap struct {
	FromMin, FromMax float64
	ToMin, ToMax     float64
}

// TransformKind selects which shape a response transform takes.
type TransformKind int

const (
	// KindFullResponse translates a complete non-streaming body.
	KindFullResponse TransformKind = iota
	// KindStreamChunk translates one upstream SSE frame into zero or more
	// canonical frames.
	KindStreamChunk
	// KindJSONToStream re-emits a non-streaming upstream JSON body as a
	// canonical SSE stream.
	KindJSONToStream
	// KindBodyToChunks splits a whole canonical body into word-boundary
	// SSE chunks.
	KindBodyToChunks
)

// TransformContext carries the per-dispatch inputs a response transform may
// inspect.
type TransformContext struct {
	Function schema.FunctionName
	Target   *reqconfig.Resolved
	Strict   bool // strict OpenAI compliance: drop provider-specific extras

	// State is per-dispatch scratch space for stream-chunk transforms that
	// need values from earlier frames (message id, model). The pipeline
	// allocates a fresh map per dispatch.
	State map[string]any
}

// ResponseTransform is one of the four response transform shapes. Exactly
// one of Full, Chunk, or Body is set, according to Kind (KindJSONToStream
// and KindBodyToChunks both use Body).
type ResponseTransform struct {
	Kind  TransformKind
	Full  func(body []byte, status int, header http.Header, tc TransformContext) ([]byte, error)
	Chunk func(frame []byte, tc TransformContext) ([][]byte, error)
	Body  func(body []byte, tc TransformContext) ([][]byte, error)
}

// ProviderConfig is a provider's complete declarative adapter.
type ProviderConfig struct {
	Name string

	// APIKeyRequired is false for providers reachable without credentials
	// (e.g. a local deployment behind custom_host).
	APIKeyRequired bool

	// BaseURL returns the provider base URL. It may inspect the target's
	// custom host or deployment URL.
	BaseURL func(target *reqconfig.Resolved, fn schema.FunctionName) (string, error)

	// Headers returns the outbound HTTP headers, typically the bearer
	// authorization plus content type.
	Headers func(target *reqconfig.Resolved) map[string]string

	// Endpoint returns the path suffix for fn, expanding the positional
	// path parameters captured by the classifier (file id, job id, ...).
	// Returns "" when the provider does not support the function.
	Endpoint func(fn schema.FunctionName, target *reqconfig.Resolved, params []string) string

	// MultipartFunctions lists functions whose bodies are sent as
	// multipart form data instead of JSON.
	MultipartFunctions map[schema.FunctionName]bool

	// ValidateCustomFields checks provider-specific extra fields on the
	// target before dispatch.
	ValidateCustomFields func(target *reqconfig.Resolved) error

	// Functions maps each supported FunctionName to its parameter map. A
	// nil map for a supported function means verbatim passthrough.
	Functions map[schema.FunctionName]FunctionConfig

	// ResponseTransforms maps each FunctionName to its response transform.
	// A missing entry means the response body is already canonical and
	// only the provider stamp is applied.
	ResponseTransforms map[schema.FunctionName]ResponseTransform

	// ModelCaps lists model-specific parameter adjustments.
	ModelCaps []ModelCapability
}

// SupportsFunction reports whether the provider declares an endpoint for fn.
func (pc *ProviderConfig) SupportsFunction(fn schema.FunctionName, target *reqconfig.Resolved) bool {
	return pc.Endpoint(fn, target, nil) != ""
}

// ShapeError reports an upstream body that lacks the shape the transform
// expects. The engine surfaces it as a 502 tagged with the provider.
type ShapeError struct {
	Provider string
	Detail   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Provider, e.Detail)
}

// InvalidRequestError reports a canonical request that cannot be mapped to
// the provider (missing required field, unmappable value). Surfaces as 422.
type InvalidRequestError struct {
	Provider string
	Message  string
}

func (e *InvalidRequestError) Error() string { return e.Message }
