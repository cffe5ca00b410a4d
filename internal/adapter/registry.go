package adapter

import "fmt"

// Registry holds the installed provider adapters keyed by provider name.
type Registry struct {
	providers map[string]*ProviderConfig
}

// NewRegistry returns a registry with every built-in provider installed.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]*ProviderConfig)}
	for _, pc := range []*ProviderConfig{
		newOpenAI(),
		newAnthropic(),
		newGemini(),
		newWorkersAI(),
		newAzureFoundry(),
		newOpenAICompatible("xai", "https://api.x.ai/v1"),
		newOpenAICompatible("anyscale", "https://api.endpoints.anyscale.com/v1"),
		newOpenAICompatible("ai21", "https://api.ai21.com/studio/v1"),
		newOpenAICompatible("siliconflow", "https://api.siliconflow.cn/v1"),
		newOpenAICompatible("deepseek", "https://api.deepseek.com/v1"),
		newOpenAICompatible("groq", "https://api.groq.com/openai/v1"),
		newOpenAICompatible("together", "https://api.together.xyz/v1"),
	} {
		r.Register(pc)
	}
	return r
}

// Register installs (or replaces) a provider adapter.
func (r *Registry) Register(pc *ProviderConfig) {
	r.providers[pc.Name] = pc
}

// Provider returns the adapter for name.
func (r *Registry) Provider(name string) (*ProviderConfig, error) {
	pc, ok := r.providers[name]
	if !ok {
		return nil, &InvalidRequestError{Provider: name, Message: fmt.Sprintf("unknown provider %q", name)}
	}
	return pc, nil
}

// Providers lists the installed provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// IsAPIKeyRequired reports whether the named provider needs an API key.
// Unknown providers require one; the resolver fails later with a clearer
// error if the provider itself is unknown.
func (r *Registry) IsAPIKeyRequired(name string) bool {
	pc, ok := r.providers[name]
	if !ok {
		return true
	}
	return pc.APIKeyRequired
}
