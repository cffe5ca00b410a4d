package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// UnsupportedFunctionError reports a function the selected provider declares
// no endpoint for. Surfaces as 404.
type UnsupportedFunctionError struct {
	Provider string
	Function schema.FunctionName
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Function)
}

// Result is the outcome of one upstream dispatch.
type Result struct {
	StatusCode int
	Header     http.Header
	Provider   string

	// Body is set for non-streaming dispatches: either the canonical
	// response or the canonical error envelope.
	Body []byte

	// Stream is the raw upstream SSE body for natively streaming
	// dispatches; the caller consumes it through ProcessChunk and must
	// close it.
	Stream io.ReadCloser

	// Frames holds the complete synthesized SSE frames for providers whose
	// streaming is re-chunked from a non-streaming upstream body.
	Frames [][]byte

	// Transform is the response transform in effect for this dispatch.
	Transform ResponseTransform
}

// Engine drives the declarative adapters: it builds the outbound request,
// dispatches it with the retry policy, and applies the provider's response
// transforms.
type Engine struct {
	registry   *Registry
	dispatcher *Dispatcher

	// forwardHeaders are inbound header names passed through to the
	// provider verbatim.
	forwardHeaders []string
	strict         bool
}

func NewEngine(reg *Registry, d *Dispatcher, forwardHeaders []string, strict bool) *Engine {
	return &Engine{registry: reg, dispatcher: d, forwardHeaders: forwardHeaders, strict: strict}
}

// ForwardHeaders returns the configured pass-through header names.
func (e *Engine) ForwardHeaders() []string { return e.forwardHeaders }

// Execute runs one dispatch: translate the canonical body, call the
// provider, and (for non-streaming functions) translate the response back.
// Streaming dispatches return the open upstream stream in Result.Stream.
func (e *Engine) Execute(ctx context.Context, fn schema.FunctionName, method string, body []byte, target *reqconfig.Resolved, pathParams []string, inbound map[string]string) (*Result, error) {
	pc, err := e.registry.Provider(target.Provider)
	if err != nil {
		return nil, err
	}

	if pc.ValidateCustomFields != nil {
		if err := pc.ValidateCustomFields(target); err != nil {
			return nil, &InvalidRequestError{Provider: pc.Name, Message: err.Error()}
		}
	}

	endpoint := pc.Endpoint(fn, target, pathParams)
	if endpoint == "" {
		return nil, &UnsupportedFunctionError{Provider: pc.Name, Function: fn}
	}

	var wire []byte
	multipart := pc.MultipartFunctions[fn]
	if multipart {
		// Multipart bodies (file upload, audio) pass through untouched.
		wire = body
	} else if len(body) > 0 {
		merged, err := MergeTargetParams(body, fn, target)
		if err != nil {
			return nil, err
		}
		wire, err = TranslateRequest(pc, fn, merged, target)
		if err != nil {
			return nil, err
		}
	}

	baseURL, err := pc.BaseURL(target, fn)
	if err != nil {
		return nil, &InvalidRequestError{Provider: pc.Name, Message: err.Error()}
	}

	headers := pc.Headers(target)
	if multipart {
		if ct, ok := inbound["Content-Type"]; ok {
			headers["Content-Type"] = ct
		}
	}
	for _, name := range e.forwardHeaders {
		if v, ok := inbound[name]; ok {
			headers[name] = v
		}
	}

	req, err := NewOutboundRequest(ctx, method, baseURL+endpoint, wire, headers)
	if err != nil {
		return nil, err
	}

	resp, err := e.dispatcher.Do(ctx, pc.Name, req)
	if err != nil {
		return nil, err
	}

	tc := TransformContext{Function: fn, Target: target, Strict: e.strict, State: map[string]any{}}
	transform, hasTransform := pc.ResponseTransforms[fn]

	res := &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Provider:   pc.Name,
		Transform:  transform,
	}

	synthesized := hasTransform && (transform.Kind == KindJSONToStream || transform.Kind == KindBodyToChunks)
	if fn.IsStreaming() && resp.StatusCode < 400 && !synthesized {
		res.Stream = resp.Body
		return res, nil
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("adapter: read %s response: %w", pc.Name, err)
	}

	if resp.StatusCode >= 400 {
		res.Body = CanonicalError(pc.Name, resp.StatusCode, raw)
		return res, nil
	}

	if synthesized {
		frames, terr := transform.Body(raw, tc)
		if terr != nil {
			return nil, terr
		}
		res.Frames = frames
		return res, nil
	}

	if hasTransform && transform.Full != nil {
		out, terr := transform.Full(raw, resp.StatusCode, resp.Header, tc)
		if terr != nil {
			return nil, terr
		}
		res.Body = out
		return res, nil
	}

	// Already canonical: just stamp the provider.
	res.Body = StampProvider(raw, pc.Name)
	return res, nil
}

// ProcessChunk translates one upstream SSE payload into zero or more
// canonical frames, ready to write to the client. done reports the upstream
// terminator.
func ProcessChunk(payload []byte, tc TransformContext, transform ResponseTransform) (frames [][]byte, done bool, err error) {
	if schema.IsSSEDone(payload) {
		return [][]byte{[]byte(schema.SSEDone)}, true, nil
	}
	if transform.Chunk != nil {
		frames, err = transform.Chunk(payload, tc)
		return frames, false, err
	}
	// OpenAI-shaped upstream: stamp the provider and re-frame.
	stamped := StampProvider(payload, tc.Target.Provider)
	return [][]byte{schema.SSEFrame(stamped)}, false, nil
}

// StampProvider sets the provider tag on a canonical JSON body. Invalid JSON
// passes through untouched.
func StampProvider(body []byte, provider string) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	out, err := sjson.SetBytes(body, "provider", provider)
	if err != nil {
		return body
	}
	return out
}

// CanonicalError converts an upstream error body into the canonical error
// envelope tagged with the provider. Recognizable OpenAI-style error bodies
// keep their message/type/code; everything else becomes the raw body text.
func CanonicalError(provider string, status int, raw []byte) []byte {
	detail := schema.ErrorDetail{
		Message: fmt.Sprintf("provider returned status %d", status),
		Type:    "provider_error",
		Code:    "provider_error",
	}

	if m := gjson.GetBytes(raw, "error.message"); m.Exists() {
		detail.Message = m.String()
		if t := gjson.GetBytes(raw, "error.type"); t.Exists() {
			detail.Type = t.String()
		}
		if c := gjson.GetBytes(raw, "error.code"); c.Exists() {
			detail.Code = c.String()
		}
		if p := gjson.GetBytes(raw, "error.param"); p.Exists() {
			detail.Param = p.String()
		}
	} else if m := gjson.GetBytes(raw, "message"); m.Exists() {
		detail.Message = m.String()
	} else if len(raw) > 0 && len(raw) < 2048 {
		detail.Message = string(raw)
	}

	out, _ := json.Marshal(schema.ErrorBody{Error: detail, Provider: provider})
	return out
}

// ShapeErrorBody is the canonical 502 envelope for an upstream body that
// lacks the expected shape.
func ShapeErrorBody(err *ShapeError) []byte {
	out, _ := json.Marshal(schema.ErrorBody{
		Error: schema.ErrorDetail{
			Message: err.Error(),
			Type:    "provider_error",
			Code:    "invalid_provider_response",
		},
		Provider: err.Provider,
	})
	return out
}
