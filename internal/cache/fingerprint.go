package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// Fingerprint returns the request-cache key: the SHA-256 hex digest of
// "<function>-<canonical-json(body)>". Serialization is deterministic (object
// keys sorted recursively) so byte-different but semantically identical
// bodies still collide, and any field change produces a new key.
func Fingerprint(fn schema.FunctionName, body []byte) string {
	return digest(string(fn) + "-" + canonicalJSON(body))
}

// HookFingerprint returns the hook-cache key. The response body part is
// present only for output hooks.
func HookFingerprint(fn schema.FunctionName, hookJSON, reqBody, respBody []byte) string {
	s := string(fn) + "-" + canonicalJSON(hookJSON) + "-" + canonicalJSON(reqBody)
	if respBody != nil {
		s += "-" + canonicalJSON(respBody)
	}
	return digest(s)
}

// ToolFingerprint returns the capture key for one declared tool. The spec is
// canonicalized first, so key-reordered but identical declarations hash the
// same.
func ToolFingerprint(spec []byte) string {
	return digest(canonicalJSON(spec))
}

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// canonicalJSON re-serializes data with sorted object keys at every level.
// Invalid JSON hashes as its raw bytes; the fingerprint is still stable.
func canonicalJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeCanonical(sb, t[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e)
		}
		sb.WriteByte(']')
	case string:
		b, _ := json.Marshal(t)
		sb.Write(b)
	case float64:
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case nil:
		sb.WriteString("null")
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}
