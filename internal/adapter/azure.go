package adapter

import (
	"fmt"

	"github.com/nulpointcorp/agent-gateway/internal/reqconfig"
	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// newAzureFoundry builds the Azure AI Foundry adapter. Deployments speak the
// OpenAI wire format behind a per-deployment URL supplied in the target, so
// bodies pass through and only addressing and auth differ.
func newAzureFoundry() *ProviderConfig {
	return &ProviderConfig{
		Name:           "azure_foundry",
		APIKeyRequired: true,
		BaseURL: func(target *reqconfig.Resolved, _ schema.FunctionName) (string, error) {
			if target.AzureURL == "" {
				return "", fmt.Errorf("azure_foundry requires azure_ai_foundry_url on the target")
			}
			return target.AzureURL, nil
		},
		Headers: func(target *reqconfig.Resolved) map[string]string {
			return map[string]string{
				"api-key":      target.APIKey,
				"Content-Type": "application/json",
			}
		},
		Endpoint: func(fn schema.FunctionName, _ *reqconfig.Resolved, params []string) string {
			return expandEndpoint(openAIEndpoints[fn], params)
		},
		Functions: map[schema.FunctionName]FunctionConfig{},
	}
}
