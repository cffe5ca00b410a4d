package reqconfig

import (
	"context"
	"errors"

	"github.com/nulpointcorp/agent-gateway/internal/store"
)

// KeyPolicy answers whether a provider's adapter requires an API key. The
// adapter registry implements it.
type KeyPolicy interface {
	IsAPIKeyRequired(provider string) bool
}

// Resolved is a fully resolved dispatch target: everything the adapter engine
// needs to build the outbound provider request.
type Resolved struct {
	Provider     string
	Model        string
	APIKey       string
	SystemPrompt string // template already rendered
	Params       store.ConfigParams
	CustomHost   string
	AzureURL     string
	CustomFields map[string]string

	// ConfigurationName is set when the target came from a stored skill
	// configuration; empty for inline provider targets.
	ConfigurationName    string
	ConfigurationVersion string
}

// Resolver turns pre-processed targets into Resolved dispatch targets using
// the storage connector and the server's key cipher. It performs storage
// reads only; it never mutates stored state.
type Resolver struct {
	store  store.Store
	cipher *store.Cipher
	policy KeyPolicy
}

func NewResolver(st store.Store, cipher *store.Cipher, policy KeyPolicy) *Resolver {
	return &Resolver{store: st, cipher: cipher, policy: policy}
}

// Resolve resolves the first usable target of rc for the given skill. The
// returned error is always a *ConfigError.
func (r *Resolver) Resolve(ctx context.Context, skillID string, rc *RequestConfig) (*Resolved, error) {
	// Multiple targets are accepted in the header; the first one is
	// authoritative and the rest are ignored.
	return r.resolveTarget(ctx, skillID, &rc.Targets[0])
}

func (r *Resolver) resolveTarget(ctx context.Context, skillID string, t *Target) (*Resolved, error) {
	if t.ConfigurationName != "" {
		return r.resolveConfiguration(ctx, skillID, t)
	}
	return r.resolveInline(t)
}

// resolveInline builds a minimal target from an explicit provider+model pair.
func (r *Resolver) resolveInline(t *Target) (*Resolved, error) {
	res := &Resolved{
		Provider:   t.Provider,
		Model:      t.Model,
		APIKey:     t.APIKey,
		CustomHost: t.CustomHost,
		AzureURL:   t.AzureAIFoundryURL,
	}
	if err := r.requireKey(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) resolveConfiguration(ctx context.Context, skillID string, t *Target) (*Resolved, error) {
	cfg, err := r.store.GetConfigurationByName(ctx, skillID, t.ConfigurationName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidf("configuration %q not found", t.ConfigurationName)
		}
		return nil, internalf("load configuration %q: %v", t.ConfigurationName, err)
	}

	versionKey := t.ConfigurationVersion
	if versionKey == "" {
		versionKey = store.CurrentVersion
	}
	version, ok := cfg.Data[versionKey]
	if !ok {
		return nil, invalidf("configuration %q has no version %q", t.ConfigurationName, versionKey)
	}

	params := version.Params
	if params.ModelID == "" {
		return nil, invalidf("configuration %q version %q declares no model", t.ConfigurationName, versionKey)
	}

	model, err := r.store.GetModel(ctx, params.ModelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidf("model %q not found for configuration %q", params.ModelID, t.ConfigurationName)
		}
		return nil, internalf("load model %q: %v", params.ModelID, err)
	}

	key, err := r.store.GetProviderAPIKey(ctx, model.ProviderAPIKeyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidf("api key %q not found for model %q", model.ProviderAPIKeyID, model.ModelName)
		}
		return nil, internalf("load api key %q: %v", model.ProviderAPIKeyID, err)
	}

	apiKey := ""
	if key.EncryptedKey != "" {
		apiKey, err = r.cipher.Decrypt(key.EncryptedKey)
		if err != nil {
			return nil, internalf("decrypt api key %q: %v", key.ID, err)
		}
	}

	res := &Resolved{
		Provider:             key.Provider,
		Model:                model.ModelName,
		APIKey:               apiKey,
		SystemPrompt:         RenderTemplate(params.SystemPrompt, t.SystemPromptVars),
		Params:               params,
		CustomHost:           t.CustomHost,
		AzureURL:             t.AzureAIFoundryURL,
		CustomFields:         key.CustomFields,
		ConfigurationName:    cfg.Name,
		ConfigurationVersion: versionKey,
	}
	if t.APIKey != "" {
		res.APIKey = t.APIKey // explicit key in the request overrides the stored one
	}
	if err := r.requireKey(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) requireKey(res *Resolved) error {
	if res.APIKey != "" {
		return nil
	}
	if r.policy != nil && !r.policy.IsAPIKeyRequired(res.Provider) {
		return nil
	}
	return invalidf("no api key available for provider %q", res.Provider)
}
