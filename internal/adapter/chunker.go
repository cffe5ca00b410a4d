package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// maxChunkContent bounds the delta.content length of one synthesized stream
// chunk. Splits happen only on whitespace so words never break mid-run.
const maxChunkContent = 50

// SplitContent splits text into pieces of at most max characters, breaking
// only at whitespace. A single word longer than max becomes its own piece.
// The concatenation of the pieces equals the input.
func SplitContent(text string, max int) []string {
	if text == "" {
		return nil
	}
	if max <= 0 {
		max = maxChunkContent
	}

	var pieces []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			pieces = append(pieces, sb.String())
			sb.Reset()
		}
	}

	for _, word := range splitKeepingSpace(text) {
		if sb.Len() > 0 && sb.Len()+len(word) > max {
			flush()
		}
		sb.WriteString(word)
		if sb.Len() >= max {
			flush()
		}
	}
	flush()
	return pieces
}

// splitKeepingSpace splits text into word+trailing-whitespace runs so the
// pieces concatenate losslessly.
func splitKeepingSpace(text string) []string {
	var runs []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if inSpace && !isSpace {
			runs = append(runs, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	runs = append(runs, text[start:])
	return runs
}

// ChunksFromResponse converts a complete canonical chat completion into a
// sequence of SSE frames: a role chunk, one content chunk per ≤50-char
// word-boundary piece (or tool-call chunks), a finish_reason chunk, and the
// [DONE] terminator. This is the whole-body-to-chunks transform shape used
// by providers that cannot stream natively.
func ChunksFromResponse(body []byte, provider string) ([][]byte, error) {
	var resp schema.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ShapeError{Provider: provider, Detail: fmt.Sprintf("chat completion body: %v", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &ShapeError{Provider: provider, Detail: "no choices in response"}
	}

	id := resp.ID
	if id == "" {
		id = "chatcmpl-" + uuid.New().String()
	}
	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	base := schema.ChatCompletionChunk{
		ID:       id,
		Object:   "chat.completion.chunk",
		Created:  created,
		Model:    resp.Model,
		Provider: provider,
	}

	frame := func(delta schema.ChunkDelta, finish *string) []byte {
		c := base
		c.Choices = []schema.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}}
		return schema.SSEFrameJSON(c)
	}

	choice := resp.Choices[0]
	var frames [][]byte

	role := choice.Message.Role
	if role == "" {
		role = "assistant"
	}
	frames = append(frames, frame(schema.ChunkDelta{Role: role}, nil))

	for _, piece := range SplitContent(choice.Message.ContentText(), maxChunkContent) {
		frames = append(frames, frame(schema.ChunkDelta{Content: piece}, nil))
	}

	finish := choice.FinishReason
	if len(choice.Message.ToolCalls) > 0 {
		// Tool calls surface as a dedicated chunk preserving id, name and
		// arguments, finishing with finish_reason=tool_calls.
		calls := make([]schema.ToolCall, len(choice.Message.ToolCalls))
		copy(calls, choice.Message.ToolCalls)
		for i := range calls {
			idx := i
			calls[i].Index = &idx
		}
		frames = append(frames, frame(schema.ChunkDelta{ToolCalls: calls}, nil))
		if finish == "" {
			finish = "tool_calls"
		}
	}
	if finish == "" {
		finish = "stop"
	}

	frames = append(frames, frame(schema.ChunkDelta{}, &finish))
	frames = append(frames, []byte(schema.SSEDone))

	return frames, nil
}
