package classifier

import (
	"strings"
	"testing"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// samplePath turns a table pattern into a concrete request path, substituting
// "abc123" for each capture group.
func samplePath(pattern string) (path string, params int) {
	p := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	params = strings.Count(p, "([^/]+)")
	return strings.ReplaceAll(p, "([^/]+)", "abc123"), params
}

func TestClassifyEveryRoute(t *testing.T) {
	for _, r := range Routes() {
		path, wantParams := samplePath(r.Pattern.String())

		m := Classify(r.Method, path, r.Stream)
		if m.Function != r.Function {
			t.Errorf("%s %s (stream=%v): got %q, want %q",
				r.Method, path, r.Stream, m.Function, r.Function)
		}
		if len(m.PathParams) != wantParams {
			t.Errorf("%s %s: got %d path params, want %d",
				r.Method, path, len(m.PathParams), wantParams)
		}
		for _, p := range m.PathParams {
			if p != "abc123" {
				t.Errorf("%s %s: captured %q, want %q", r.Method, path, p, "abc123")
			}
		}

		// The same path with the wrong method must not resolve to this row.
		wrongMethod := "DELETE"
		if r.Method == "DELETE" {
			wrongMethod = "PATCH"
		}
		if m := Classify(wrongMethod, path, r.Stream); m.Function == r.Function {
			t.Errorf("%s %s: matched despite method mismatch", wrongMethod, path)
		}
	}
}

func TestClassifyStreamFlag(t *testing.T) {
	cases := []struct {
		path   string
		stream bool
		want   schema.FunctionName
	}{
		{"/v1/chat/completions", false, schema.FnChatComplete},
		{"/v1/chat/completions", true, schema.FnStreamChatComplete},
		{"/v1/completions", false, schema.FnComplete},
		{"/v1/completions", true, schema.FnStreamComplete},
		{"/v1/responses", false, schema.FnCreateModelResponse},
		{"/v1/responses", true, schema.FnStreamModelResponse},
	}
	for _, tc := range cases {
		if m := Classify("POST", tc.path, tc.stream); m.Function != tc.want {
			t.Errorf("POST %s stream=%v: got %q, want %q", tc.path, tc.stream, m.Function, tc.want)
		}
	}

	// Functions with no streaming variant never match with the flag set.
	if m := Classify("POST", "/v1/embeddings", true); m.Function != schema.FnUnknown {
		t.Errorf("streamed embeddings classified as %q", m.Function)
	}
}

func TestClassifyNoMatch(t *testing.T) {
	cases := []struct {
		method string
		path   string
	}{
		{"POST", "/v1/unknown"},
		{"GET", "/v1/chat/completions"},
		{"POST", "/v2/chat/completions"},
		{"POST", "/v1/chat/completions/extra"},
		{"POST", "/v1/files/a/b/content"},
		{"GET", "/health"},
	}
	for _, tc := range cases {
		if m := Classify(tc.method, tc.path, false); m.Function != schema.FnUnknown {
			t.Errorf("%s %s: got %q, want no match", tc.method, tc.path, m.Function)
		}
	}
}

// Path params keep their order of appearance in the pattern.
func TestClassifyPathParamCapture(t *testing.T) {
	m := Classify("GET", "/v1/fine_tuning/jobs/ftjob-77/events", false)
	if m.Function != schema.FnListFineTuningEvents {
		t.Fatalf("got %q", m.Function)
	}
	if len(m.PathParams) != 1 || m.PathParams[0] != "ftjob-77" {
		t.Fatalf("path params = %v", m.PathParams)
	}
}
