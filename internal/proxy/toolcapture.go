package proxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/nulpointcorp/agent-gateway/internal/cache"
	"github.com/nulpointcorp/agent-gateway/internal/metrics"
	"github.com/nulpointcorp/agent-gateway/internal/store"
)

const toolQueueSize = 1024

type toolJob struct {
	agentID string
	name    string
	hash    string
	spec    []byte
}

// ToolCapture records the tool declarations of dispatched requests,
// fire-and-forget: capture never blocks the pipeline, and a full queue drops
// the job. Saving is idempotent per (agent, hash), so repeated requests with
// the same tools cost one row.
type ToolCapture struct {
	st      store.Store
	metrics *metrics.Registry
	log     *slog.Logger

	ch        chan toolJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewToolCapture(ctx context.Context, st store.Store, reg *metrics.Registry, slogger *slog.Logger) *ToolCapture {
	if slogger == nil {
		slogger = slog.Default()
	}
	t := &ToolCapture{
		st:      st,
		metrics: reg,
		log:     slogger,
		ch:      make(chan toolJob, toolQueueSize),
	}
	t.wg.Add(1)
	go t.run(ctx)
	return t
}

// Capture extracts tool declarations from a canonical request body and
// queues them for persistence.
func (t *ToolCapture) Capture(agentID string, requestBody []byte) {
	tools := gjson.GetBytes(requestBody, "tools")
	if !tools.IsArray() {
		return
	}
	for _, tool := range tools.Array() {
		name := tool.Get("function.name").String()
		if name == "" {
			continue
		}
		job := toolJob{
			agentID: agentID,
			name:    name,
			hash:    cache.ToolFingerprint([]byte(tool.Raw)),
			spec:    []byte(tool.Raw),
		}
		select {
		case t.ch <- job:
		default:
			t.record("dropped")
		}
	}
}

// Close stops the worker after draining the queue.
func (t *ToolCapture) Close() {
	t.closeOnce.Do(func() { close(t.ch) })
	t.wg.Wait()
}

func (t *ToolCapture) run(ctx context.Context) {
	defer t.wg.Done()
	for job := range t.ch {
		err := t.st.SaveTool(ctx, &store.Tool{
			ID:        uuid.New().String(),
			AgentID:   job.agentID,
			Name:      job.name,
			Hash:      job.hash,
			Spec:      job.spec,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.record("error")
			t.log.Warn("tool_capture_failed",
				"agent_id", job.agentID,
				"tool", job.name,
				"error", err.Error(),
			)
			continue
		}
		t.record("saved")
	}
}

func (t *ToolCapture) record(outcome string) {
	if t.metrics != nil {
		t.metrics.RecordToolCapture(outcome)
	}
}
