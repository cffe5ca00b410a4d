// Package logger persists one structured trace per completed dispatch. The
// hot path hands records to a buffered channel; a background goroutine
// flushes batches to the configured LogStore so logging never blocks a
// request. A full channel drops records and counts the drops.
package logger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/hooks"
)

// Dispatch statuses beyond plain HTTP codes.
const (
	StatusCancelled = "cancelled"
)

// ProviderRequestLog captures the single upstream exchange of a dispatch.
type ProviderRequestLog struct {
	URL          string    `json:"url,omitempty"`
	Method       string    `json:"method,omitempty"`
	RequestBody  []byte    `json:"request_body,omitempty"`
	ResponseBody []byte    `json:"response_body,omitempty"`
	StatusCode   int       `json:"status_code"`
	Attempts     int       `json:"attempts,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// DispatchLog is one completed dispatch trace.
type DispatchLog struct {
	ID           uuid.UUID `json:"id"`
	AgentID      string    `json:"agent_id,omitempty"`
	SkillID      string    `json:"skill_id,omitempty"`
	Method       string    `json:"method"`
	Endpoint     string    `json:"endpoint"`
	FunctionName string    `json:"function_name"`

	// Status is the numeric HTTP status as a string, or "cancelled" for a
	// client disconnect mid-stream.
	Status string `json:"status"`

	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationMs int64     `json:"duration"`

	BaseConfig string `json:"base_config,omitempty"` // configuration name, if any
	AIProvider string `json:"ai_provider,omitempty"`
	Model      string `json:"model,omitempty"`

	ProviderRequestLog ProviderRequestLog `json:"ai_provider_request_log"`
	HookLogs           []hooks.Log        `json:"hook_logs,omitempty"`

	Metadata    map[string]any `json:"metadata,omitempty"`
	CacheStatus cache.Status   `json:"cache_status"`

	TraceID        string         `json:"trace_id,omitempty"`
	ParentSpanID   string         `json:"parent_span_id,omitempty"`
	SpanID         string         `json:"span_id,omitempty"`
	SpanName       string         `json:"span_name,omitempty"`
	AppID          string         `json:"app_id,omitempty"`
	ExternalUserID string         `json:"external_user_id,omitempty"`
	UserMetadata   map[string]any `json:"user_metadata,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// LogStore persists dispatch log batches. Implementations must tolerate
// being called from a single background goroutine.
type LogStore interface {
	InsertLogs(ctx context.Context, batch []DispatchLog) error
	Close() error
}
