// Package apierr provides structured API error types and HTTP status mapping
// compatible with the OpenAI error format. Errors produced on behalf of an
// upstream provider carry a top-level "provider" tag so clients can tell which
// backend failed.
package apierr

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorType constants.
const (
	TypeProviderError     = "provider_error"
	TypeRateLimitError    = "rate_limit_error"
	TypeInvalidRequest    = "invalid_request_error"
	TypeAuthenticationErr = "authentication_error"
	TypeNotFound          = "not_found_error"
	TypePermissionError   = "permission_error"
	TypeServerError       = "server_error"
)

// Code constants.
const (
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInvalidAPIKey     = "invalid_api_key"
	CodeInternalError     = "internal_error"
	CodeProviderError     = "provider_error"
	CodeRequestTimeout    = "request_timeout"
	CodeNotImplemented    = "not_implemented"
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidConfig     = "invalid_config"
	CodeNotFound          = "not_found"
	CodeHookDenied        = "hook_denied"
	CodeUnknownEndpoint   = "unknown_endpoint"
)

type (
	// APIError is the structured error returned to clients.
	APIError struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Param   string `json:"param,omitempty"`
		Code    string `json:"code,omitempty"`
	}

	// Envelope is the full error body. Provider is set only when the error
	// originates from (or is attributed to) an upstream AI provider.
	Envelope struct {
		Error    APIError `json:"error"`
		Provider string   `json:"provider,omitempty"`
	}
)

// Write writes the error as JSON to the fasthttp response with the given HTTP status.
func Write(ctx *fasthttp.RequestCtx, status int, message, errType, code string) {
	WriteEnvelope(ctx, status, Envelope{Error: APIError{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
}

// WriteEnvelope writes a fully populated error envelope.
func WriteEnvelope(ctx *fasthttp.RequestCtx, status int, env Envelope) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(env)
	ctx.SetBody(body)
}

// WriteProvider writes an error attributed to the named upstream provider.
func WriteProvider(ctx *fasthttp.RequestCtx, status int, provider, message, errType, code string) {
	WriteEnvelope(ctx, status, Envelope{
		Error:    APIError{Message: message, Type: errType, Code: code},
		Provider: provider,
	})
}

// WriteUnauthorized writes a 401 authentication error.
func WriteUnauthorized(ctx *fasthttp.RequestCtx, msg string) {
	Write(ctx, fasthttp.StatusUnauthorized, msg, TypeAuthenticationErr, CodeInvalidAPIKey)
}

// WriteTimeout writes a 408 timeout error (retry budget exhausted upstream).
func WriteTimeout(ctx *fasthttp.RequestCtx, provider string) {
	WriteProvider(ctx, fasthttp.StatusRequestTimeout, provider,
		"provider request timed out", TypeProviderError, CodeRequestTimeout)
}

// WriteRateLimit writes a 429 rate limit error.
func WriteRateLimit(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Retry-After", "60")
	Write(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded", TypeRateLimitError, CodeRateLimitExceeded)
}
