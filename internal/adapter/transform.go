package adapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// MergeTargetParams folds the resolved configuration into the canonical
// request body before provider mapping: the configured model always wins,
// sampling parameters fill in only when the body leaves them unset, and a
// configured system prompt is prepended as a system message when the body
// carries none.
func MergeTargetParams(body []byte, fn schema.FunctionName, target *reqconfig.Resolved) ([]byte, error) {
	out := body
	var err error

	if target.Model != "" {
		if out, err = sjson.SetBytes(out, "model", target.Model); err != nil {
			return nil, fmt.Errorf("adapter: set model: %w", err)
		}
	}

	fill := func(path string, v any) {
		if err != nil || v == nil {
			return
		}
		if !gjson.GetBytes(out, path).Exists() {
			out, err = sjson.SetBytes(out, path, v)
		}
	}

	p := target.Params
	if p.Temperature != nil {
		fill("temperature", *p.Temperature)
	}
	if p.MaxTokens != nil {
		fill("max_tokens", *p.MaxTokens)
	}
	if p.TopP != nil {
		fill("top_p", *p.TopP)
	}
	if p.FrequencyPenalty != nil {
		fill("frequency_penalty", *p.FrequencyPenalty)
	}
	if p.PresencePenalty != nil {
		fill("presence_penalty", *p.PresencePenalty)
	}
	if p.Seed != nil {
		fill("seed", *p.Seed)
	}
	if len(p.Stop) > 0 {
		fill("stop", p.Stop)
	}
	for k, v := range p.AdditionalParams {
		fill(k, v)
	}
	if err != nil {
		return nil, fmt.Errorf("adapter: merge params: %w", err)
	}

	if target.SystemPrompt != "" && (fn == schema.FnChatComplete || fn == schema.FnStreamChatComplete) {
		out, err = prependSystemMessage(out, target.SystemPrompt)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func prependSystemMessage(body []byte, prompt string) ([]byte, error) {
	msgs := gjson.GetBytes(body, "messages")
	for _, m := range msgs.Array() {
		if m.Get("role").String() == "system" {
			return body, nil // the request's own system message wins
		}
	}

	sys := map[string]any{"role": "system", "content": prompt}
	rebuilt := []any{sys}
	for _, m := range msgs.Array() {
		rebuilt = append(rebuilt, m.Value())
	}
	out, err := sjson.SetBytes(body, "messages", rebuilt)
	if err != nil {
		return nil, fmt.Errorf("adapter: prepend system message: %w", err)
	}
	return out, nil
}

// TranslateRequest maps a canonical request body into the provider's wire
// body for fn, following pc's parameter maps:
//
//  1. every canonical top-level field with a ParameterConfig is copied (or
//     produced by its Transform), clamped to [Min,Max], and assigned to the
//     provider field;
//  2. canonical fields with no mapping are dropped;
//  3. mappings with a Default fill in when the canonical field is absent;
//  4. mappings marked Required that end up unset fail with
//     InvalidRequestError;
//  5. model capability rules then drop, rename, or rescale provider fields.
//
// A nil FunctionConfig passes the body through verbatim.
func TranslateRequest(pc *ProviderConfig, fn schema.FunctionName, body []byte, target *reqconfig.Resolved) ([]byte, error) {
	fc, declared := pc.Functions[fn]
	if !declared || fc == nil {
		return applyModelCaps(pc, target.Model, body), nil
	}

	parsed := gjson.ParseBytes(body)
	out := []byte(`{}`)
	var err error

	assign := func(cfg *ParameterConfig, value any) error {
		value = clamp(cfg, value)
		out, err = sjson.SetBytes(out, cfg.Param, value)
		if err != nil {
			return fmt.Errorf("adapter: set %s: %w", cfg.Param, err)
		}
		return nil
	}

	for field, cfgs := range fc {
		canonical := parsed.Get(field)
		for i := range cfgs {
			cfg := &cfgs[i]
			switch {
			case cfg.Transform != nil:
				// Transforms see the whole body so fan-out and
				// cross-field mappings stay declarative.
				if !canonical.Exists() && cfg.Default == nil && !cfg.Required {
					continue
				}
				v, terr := cfg.Transform(parsed, target)
				if terr != nil {
					return nil, &InvalidRequestError{Provider: pc.Name, Message: terr.Error()}
				}
				if v == nil {
					continue
				}
				if aerr := assign(cfg, v); aerr != nil {
					return nil, aerr
				}
			case canonical.Exists():
				if aerr := assign(cfg, canonical.Value()); aerr != nil {
					return nil, aerr
				}
			case cfg.Default != nil:
				if aerr := assign(cfg, cfg.Default); aerr != nil {
					return nil, aerr
				}
			}
		}
	}

	for _, cfgs := range fc {
		for i := range cfgs {
			cfg := &cfgs[i]
			if cfg.Required && !gjson.GetBytes(out, cfg.Param).Exists() {
				return nil, &InvalidRequestError{
					Provider: pc.Name,
					Message:  fmt.Sprintf("required parameter %q is missing", cfg.Param),
				}
			}
		}
	}

	return applyModelCaps(pc, target.Model, out), nil
}

func clamp(cfg *ParameterConfig, value any) any {
	f, ok := asFloat(value)
	if !ok {
		return value
	}
	if cfg.Min != nil && f < *cfg.Min {
		return *cfg.Min
	}
	if cfg.Max != nil && f > *cfg.Max {
		return *cfg.Max
	}
	return value
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func applyModelCaps(pc *ProviderConfig, model string, body []byte) []byte {
	for i := range pc.ModelCaps {
		mc := &pc.ModelCaps[i]
		if !mc.Match(model) {
			continue
		}
		for _, field := range mc.Unsupported {
			if gjson.GetBytes(body, field).Exists() {
				slog.Warn("dropping parameter unsupported by model",
					slog.String("provider", pc.Name),
					slog.String("model", model),
					slog.String("param", field),
				)
				body, _ = sjson.DeleteBytes(body, field)
			}
		}
		for from, to := range mc.Remap {
			if v := gjson.GetBytes(body, from); v.Exists() {
				body, _ = sjson.SetBytes(body, to, v.Value())
				body, _ = sjson.DeleteBytes(body, from)
			}
		}
		for field, rm := range mc.Scale {
			if v := gjson.GetBytes(body, field); v.Exists() {
				scaled := rescale(v.Float(), rm)
				body, _ = sjson.SetBytes(body, field, scaled)
			}
		}
		return body // first matching capability wins
	}
	return body
}

func rescale(v float64, rm RangeMap) float64 {
	if rm.FromMax == rm.FromMin {
		return rm.ToMin
	}
	ratio := (v - rm.FromMin) / (rm.FromMax - rm.FromMin)
	out := rm.ToMin + ratio*(rm.ToMax-rm.ToMin)
	if out < rm.ToMin {
		out = rm.ToMin
	}
	if out > rm.ToMax {
		out = rm.ToMax
	}
	return out
}
