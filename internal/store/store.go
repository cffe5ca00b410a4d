// Package store defines the user-data storage connector: agents, skills,
// versioned skill configurations, models, provider API keys, and captured
// tools. Implementations must be safe for concurrent use; the gateway treats
// the backend as swappable and depends only on the Store interface.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate name")
)

// CurrentVersion is the reserved configuration version key pointing at the
// live version of a skill configuration.
const CurrentVersion = "current"

type (
	// Agent is the top-level grouping entity. Names are unique per owner.
	Agent struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Metadata    schema.Metadata `json:"metadata,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	// Skill is a named capability of an agent. Names are unique per agent.
	Skill struct {
		ID                string          `json:"id"`
		AgentID           string          `json:"agent_id"`
		Name              string          `json:"name"`
		Description       string          `json:"description,omitempty"`
		Metadata          schema.Metadata `json:"metadata,omitempty"`
		MaxConfigurations int             `json:"max_configurations,omitempty"`
		CreatedAt         time.Time       `json:"created_at"`
		UpdatedAt         time.Time       `json:"updated_at"`
	}

	// ConfigParams is one version's dispatch parameters. SystemPrompt may
	// contain {{variable}} placeholders rendered at dispatch time.
	ConfigParams struct {
		ModelID          string         `json:"model_id"`
		SystemPrompt     string         `json:"system_prompt,omitempty"`
		Temperature      *float64       `json:"temperature,omitempty"`
		MaxTokens        *int           `json:"max_tokens,omitempty"`
		TopP             *float64       `json:"top_p,omitempty"`
		FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
		PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
		Stop             []string       `json:"stop,omitempty"`
		Seed             *int64         `json:"seed,omitempty"`
		AdditionalParams map[string]any `json:"additional_params,omitempty"`
	}

	// ConfigVersion is a named snapshot of a skill configuration.
	ConfigVersion struct {
		Params ConfigParams `json:"params"`
	}

	// SkillConfiguration maps version keys to snapshots. The reserved key
	// "current" denotes the live version.
	SkillConfiguration struct {
		ID        string                   `json:"id"`
		SkillID   string                   `json:"skill_id"`
		Name      string                   `json:"name"`
		Data      map[string]ConfigVersion `json:"data"`
		CreatedAt time.Time                `json:"created_at"`
		UpdatedAt time.Time                `json:"updated_at"`
	}

	// Model links a model name to the provider API key used to reach it.
	Model struct {
		ID                  string `json:"id"`
		ProviderAPIKeyID    string `json:"ai_provider_api_key_id"`
		ModelName           string `json:"model_name"`
		ModelType           string `json:"model_type"` // "text" or "embed"
		EmbeddingDimensions *int   `json:"embedding_dimensions,omitempty"`
	}

	// ProviderAPIKey is a stored upstream credential. EncryptedKey is the
	// AES-256-GCM ciphertext produced by Cipher.Encrypt.
	ProviderAPIKey struct {
		ID           string            `json:"id"`
		Provider     string            `json:"ai_provider"`
		EncryptedKey string            `json:"api_key"`
		CustomFields map[string]string `json:"custom_fields,omitempty"`
	}

	// Tool is a captured tool declaration, recorded once per (agent, hash).
	Tool struct {
		ID        string    `json:"id"`
		AgentID   string    `json:"agent_id"`
		Name      string    `json:"name"`
		Hash      string    `json:"hash"`
		Spec      []byte    `json:"spec"`
		CreatedAt time.Time `json:"created_at"`
	}
)

// Store is the user-data storage connector.
type Store interface {
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgentByName(ctx context.Context, name string) (*Agent, error)
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	UpdateAgent(ctx context.Context, a *Agent) error
	// DeleteAgent cascades to the agent's skills, configurations, and tools.
	DeleteAgent(ctx context.Context, id string) error

	CreateSkill(ctx context.Context, s *Skill) error
	GetSkillByName(ctx context.Context, agentID, name string) (*Skill, error)
	ListSkills(ctx context.Context, agentID string) ([]*Skill, error)
	UpdateSkill(ctx context.Context, s *Skill) error
	DeleteSkill(ctx context.Context, id string) error

	CreateConfiguration(ctx context.Context, c *SkillConfiguration) error
	GetConfigurationByName(ctx context.Context, skillID, name string) (*SkillConfiguration, error)
	ListConfigurations(ctx context.Context, skillID string) ([]*SkillConfiguration, error)
	UpdateConfiguration(ctx context.Context, c *SkillConfiguration) error
	DeleteConfiguration(ctx context.Context, id string) error

	CreateModel(ctx context.Context, m *Model) error
	GetModel(ctx context.Context, id string) (*Model, error)
	ListModels(ctx context.Context) ([]*Model, error)
	DeleteModel(ctx context.Context, id string) error

	CreateProviderAPIKey(ctx context.Context, k *ProviderAPIKey) error
	GetProviderAPIKey(ctx context.Context, id string) (*ProviderAPIKey, error)
	ListProviderAPIKeys(ctx context.Context) ([]*ProviderAPIKey, error)
	DeleteProviderAPIKey(ctx context.Context, id string) error

	// SaveTool records a captured tool; saving an existing (agent, hash) pair
	// is a no-op so capture stays idempotent.
	SaveTool(ctx context.Context, t *Tool) error
	ListTools(ctx context.Context, agentID string) ([]*Tool, error)
}
