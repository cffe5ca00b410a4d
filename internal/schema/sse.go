package schema

import (
	"bytes"
	"encoding/json"
)

// SSE frame constants. A streaming response is a sequence of
// "data: <json>\n\n" frames ending with the terminator frame.
const (
	SSEDataPrefix = "data: "
	SSEFrameEnd   = "\n\n"
	SSEDone       = "data: [DONE]\n\n"
)

// SSEFrame wraps a JSON payload in a data frame.
func SSEFrame(payload []byte) []byte {
	out := make([]byte, 0, len(SSEDataPrefix)+len(payload)+len(SSEFrameEnd))
	out = append(out, SSEDataPrefix...)
	out = append(out, payload...)
	out = append(out, SSEFrameEnd...)
	return out
}

// SSEFrameJSON marshals v and wraps it in a data frame.
func SSEFrameJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return SSEFrame(b)
}

// SSEPayload strips the "data: " prefix and surrounding whitespace from one
// raw SSE line. Returns (nil, false) for non-data lines (comments, event
// names, blanks) and ("[DONE]", true) for the terminator payload.
func SSEPayload(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte(SSEDataPrefix)) {
		return nil, false
	}
	return bytes.TrimSpace(line[len(SSEDataPrefix):]), true
}

// IsSSEDone reports whether an SSE payload is the stream terminator.
func IsSSEDone(payload []byte) bool {
	return bytes.Equal(payload, []byte("[DONE]"))
}
