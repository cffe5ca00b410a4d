package mgmt

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/agent-gateway/internal/store"
	"github.com/nulpointcorp/agent-gateway/pkg/apierr"
)

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	data, _ := json.Marshal(v)
	ctx.SetBody(data)
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest, "invalid JSON body: "+err.Error(),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return false
	}
	return true
}

func pathID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}

func writeStoreErr(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		apierr.Write(ctx, fasthttp.StatusNotFound, err.Error(),
			apierr.TypeNotFound, apierr.CodeNotFound)
	case errors.Is(err, store.ErrDuplicate):
		apierr.Write(ctx, fasthttp.StatusConflict, err.Error(),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
	default:
		apierr.Write(ctx, fasthttp.StatusInternalServerError, err.Error(),
			apierr.TypeServerError, apierr.CodeInternalError)
	}
}

func requireField(ctx *fasthttp.RequestCtx, name, value string) bool {
	if value == "" {
		apierr.Write(ctx, fasthttp.StatusBadRequest, "field '"+name+"' is required",
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return false
	}
	return true
}

// ── Agents ───────────────────────────────────────────────────────────────────

func (a *API) handleCreateAgent(ctx *fasthttp.RequestCtx) {
	var agent store.Agent
	if !decodeBody(ctx, &agent) || !requireField(ctx, "name", agent.Name) {
		return
	}
	agent.ID = ""
	if err := a.st.CreateAgent(ctx, &agent); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, agent)
}

func (a *API) handleListAgents(ctx *fasthttp.RequestCtx) {
	agents, err := a.st.ListAgents(ctx)
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, agents)
}

func (a *API) handleGetAgent(ctx *fasthttp.RequestCtx) {
	agent, err := a.st.GetAgent(ctx, pathID(ctx))
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, agent)
}

func (a *API) handleUpdateAgent(ctx *fasthttp.RequestCtx) {
	var agent store.Agent
	if !decodeBody(ctx, &agent) {
		return
	}
	agent.ID = pathID(ctx)
	if err := a.st.UpdateAgent(ctx, &agent); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, agent)
}

func (a *API) handleDeleteAgent(ctx *fasthttp.RequestCtx) {
	if err := a.st.DeleteAgent(ctx, pathID(ctx)); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ── Skills ───────────────────────────────────────────────────────────────────

func (a *API) handleCreateSkill(ctx *fasthttp.RequestCtx) {
	var skill store.Skill
	if !decodeBody(ctx, &skill) || !requireField(ctx, "name", skill.Name) {
		return
	}
	skill.ID = ""
	skill.AgentID = pathID(ctx)
	if _, err := a.st.GetAgent(ctx, skill.AgentID); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	if err := a.st.CreateSkill(ctx, &skill); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, skill)
}

func (a *API) handleListSkills(ctx *fasthttp.RequestCtx) {
	skills, err := a.st.ListSkills(ctx, pathID(ctx))
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, skills)
}

func (a *API) handleUpdateSkill(ctx *fasthttp.RequestCtx) {
	var skill store.Skill
	if !decodeBody(ctx, &skill) {
		return
	}
	skill.ID = pathID(ctx)
	if err := a.st.UpdateSkill(ctx, &skill); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, skill)
}

func (a *API) handleDeleteSkill(ctx *fasthttp.RequestCtx) {
	if err := a.st.DeleteSkill(ctx, pathID(ctx)); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ── Skill configurations ────────────────────────────────────────────────────

func (a *API) handleCreateConfiguration(ctx *fasthttp.RequestCtx) {
	var cfg store.SkillConfiguration
	if !decodeBody(ctx, &cfg) || !requireField(ctx, "name", cfg.Name) {
		return
	}
	if len(cfg.Data) == 0 {
		apierr.Write(ctx, fasthttp.StatusBadRequest,
			"configuration must carry at least one version",
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	if _, ok := cfg.Data[store.CurrentVersion]; !ok {
		apierr.Write(ctx, fasthttp.StatusBadRequest,
			"configuration must carry a '"+store.CurrentVersion+"' version",
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	cfg.ID = ""
	cfg.SkillID = pathID(ctx)
	if err := a.st.CreateConfiguration(ctx, &cfg); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, cfg)
}

func (a *API) handleListConfigurations(ctx *fasthttp.RequestCtx) {
	cfgs, err := a.st.ListConfigurations(ctx, pathID(ctx))
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, cfgs)
}

func (a *API) handleUpdateConfiguration(ctx *fasthttp.RequestCtx) {
	var cfg store.SkillConfiguration
	if !decodeBody(ctx, &cfg) {
		return
	}
	cfg.ID = pathID(ctx)
	if err := a.st.UpdateConfiguration(ctx, &cfg); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, cfg)
}

func (a *API) handleDeleteConfiguration(ctx *fasthttp.RequestCtx) {
	if err := a.st.DeleteConfiguration(ctx, pathID(ctx)); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ── Models ───────────────────────────────────────────────────────────────────

func (a *API) handleCreateModel(ctx *fasthttp.RequestCtx) {
	var m store.Model
	if !decodeBody(ctx, &m) ||
		!requireField(ctx, "model_name", m.ModelName) ||
		!requireField(ctx, "ai_provider_api_key_id", m.ProviderAPIKeyID) {
		return
	}
	if _, err := a.st.GetProviderAPIKey(ctx, m.ProviderAPIKeyID); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	m.ID = ""
	if err := a.st.CreateModel(ctx, &m); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, m)
}

func (a *API) handleListModels(ctx *fasthttp.RequestCtx) {
	models, err := a.st.ListModels(ctx)
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, models)
}

func (a *API) handleDeleteModel(ctx *fasthttp.RequestCtx) {
	if err := a.st.DeleteModel(ctx, pathID(ctx)); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ── Provider API keys ───────────────────────────────────────────────────────

// providerKeyView is the client-facing shape of a stored key: the ciphertext
// never leaves the server.
type providerKeyView struct {
	ID           string            `json:"id"`
	Provider     string            `json:"ai_provider"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func keyView(k *store.ProviderAPIKey) providerKeyView {
	return providerKeyView{ID: k.ID, Provider: k.Provider, CustomFields: k.CustomFields}
}

func (a *API) handleCreateProviderKey(ctx *fasthttp.RequestCtx) {
	var req struct {
		Provider     string            `json:"ai_provider"`
		APIKey       string            `json:"api_key"`
		CustomFields map[string]string `json:"custom_fields"`
	}
	if !decodeBody(ctx, &req) || !requireField(ctx, "ai_provider", req.Provider) {
		return
	}

	encrypted := ""
	if req.APIKey != "" {
		var err error
		encrypted, err = a.cipher.Encrypt(req.APIKey)
		if err != nil {
			apierr.Write(ctx, fasthttp.StatusInternalServerError, "encrypt api key",
				apierr.TypeServerError, apierr.CodeInternalError)
			return
		}
	}

	key := store.ProviderAPIKey{
		Provider:     req.Provider,
		EncryptedKey: encrypted,
		CustomFields: req.CustomFields,
	}
	if err := a.st.CreateProviderAPIKey(ctx, &key); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, keyView(&key))
}

func (a *API) handleListProviderKeys(ctx *fasthttp.RequestCtx) {
	keys, err := a.st.ListProviderAPIKeys(ctx)
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	views := make([]providerKeyView, len(keys))
	for i, k := range keys {
		views[i] = keyView(k)
	}
	writeJSON(ctx, fasthttp.StatusOK, views)
}

func (a *API) handleDeleteProviderKey(ctx *fasthttp.RequestCtx) {
	if err := a.st.DeleteProviderAPIKey(ctx, pathID(ctx)); err != nil {
		writeStoreErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ── Tools ────────────────────────────────────────────────────────────────────

// toolView exposes the captured spec as raw JSON instead of base64 bytes.
type toolView struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	Name      string          `json:"name"`
	Hash      string          `json:"hash"`
	Spec      json.RawMessage `json:"spec"`
	CreatedAt string          `json:"created_at"`
}

func (a *API) handleListTools(ctx *fasthttp.RequestCtx) {
	tools, err := a.st.ListTools(ctx, pathID(ctx))
	if err != nil {
		writeStoreErr(ctx, err)
		return
	}
	views := make([]toolView, len(tools))
	for i, tool := range tools {
		views[i] = toolView{
			ID:        tool.ID,
			AgentID:   tool.AgentID,
			Name:      tool.Name,
			Hash:      tool.Hash,
			Spec:      json.RawMessage(tool.Spec),
			CreatedAt: tool.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(ctx, fasthttp.StatusOK, views)
}
