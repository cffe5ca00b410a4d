package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store implementation. It backs single-node
// deployments and every test; a database-backed connector can replace it
// without touching the pipeline.
type MemoryStore struct {
	mu      sync.RWMutex
	agents  map[string]*Agent
	skills  map[string]*Skill
	configs map[string]*SkillConfiguration
	models  map[string]*Model
	keys    map[string]*ProviderAPIKey
	tools   map[string]*Tool // keyed by agentID+"/"+hash
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:  make(map[string]*Agent),
		skills:  make(map[string]*Skill),
		configs: make(map[string]*SkillConfiguration),
		models:  make(map[string]*Model),
		keys:    make(map[string]*ProviderAPIKey),
		tools:   make(map[string]*Tool),
	}
}

func now() time.Time { return time.Now().UTC() }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// ── Agents ───────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateAgent(_ context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.agents {
		if ex.Name == a.Name {
			return ErrDuplicate
		}
	}
	a.ID = newID(a.ID)
	a.CreatedAt, a.UpdatedAt = now(), now()
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAgentByName(_ context.Context, name string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetAgent(_ context.Context, id string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) UpdateAgent(_ context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.agents[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = ex.CreatedAt
	a.UpdatedAt = now()
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return ErrNotFound
	}
	delete(s.agents, id)
	// Cascade: skills, their configurations, and captured tools.
	for sid, sk := range s.skills {
		if sk.AgentID != id {
			continue
		}
		delete(s.skills, sid)
		for cid, c := range s.configs {
			if c.SkillID == sid {
				delete(s.configs, cid)
			}
		}
	}
	for k, t := range s.tools {
		if t.AgentID == id {
			delete(s.tools, k)
		}
	}
	return nil
}

// ── Skills ───────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateSkill(_ context.Context, sk *Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[sk.AgentID]; !ok {
		return ErrNotFound
	}
	for _, ex := range s.skills {
		if ex.AgentID == sk.AgentID && ex.Name == sk.Name {
			return ErrDuplicate
		}
	}
	sk.ID = newID(sk.ID)
	sk.CreatedAt, sk.UpdatedAt = now(), now()
	cp := *sk
	s.skills[sk.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSkillByName(_ context.Context, agentID, name string) (*Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sk := range s.skills {
		if sk.AgentID == agentID && sk.Name == name {
			cp := *sk
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListSkills(_ context.Context, agentID string) ([]*Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Skill
	for _, sk := range s.skills {
		if sk.AgentID == agentID {
			cp := *sk
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateSkill(_ context.Context, sk *Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.skills[sk.ID]
	if !ok {
		return ErrNotFound
	}
	sk.CreatedAt = ex.CreatedAt
	sk.UpdatedAt = now()
	cp := *sk
	s.skills[sk.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteSkill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[id]; !ok {
		return ErrNotFound
	}
	delete(s.skills, id)
	for cid, c := range s.configs {
		if c.SkillID == id {
			delete(s.configs, cid)
		}
	}
	return nil
}

// ── Skill configurations ─────────────────────────────────────────────────────

func (s *MemoryStore) CreateConfiguration(_ context.Context, c *SkillConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[c.SkillID]
	if !ok {
		return ErrNotFound
	}
	count := 0
	for _, ex := range s.configs {
		if ex.SkillID == c.SkillID {
			if ex.Name == c.Name {
				return ErrDuplicate
			}
			count++
		}
	}
	if sk.MaxConfigurations > 0 && count >= sk.MaxConfigurations {
		return ErrDuplicate
	}
	c.ID = newID(c.ID)
	c.CreatedAt, c.UpdatedAt = now(), now()
	cp := *c
	s.configs[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetConfigurationByName(_ context.Context, skillID, name string) (*SkillConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.configs {
		if c.SkillID == skillID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListConfigurations(_ context.Context, skillID string) ([]*SkillConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*SkillConfiguration
	for _, c := range s.configs {
		if c.SkillID == skillID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateConfiguration(_ context.Context, c *SkillConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.configs[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = ex.CreatedAt
	c.UpdatedAt = now()
	cp := *c
	s.configs[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteConfiguration(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return ErrNotFound
	}
	delete(s.configs, id)
	return nil
}

// ── Models ───────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateModel(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID(m.ID)
	cp := *m
	s.models[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetModel(_ context.Context, id string) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListModels(_ context.Context) ([]*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Model, 0, len(s.models))
	for _, m := range s.models {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return ErrNotFound
	}
	delete(s.models, id)
	return nil
}

// ── Provider API keys ────────────────────────────────────────────────────────

func (s *MemoryStore) CreateProviderAPIKey(_ context.Context, k *ProviderAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.ID = newID(k.ID)
	cp := *k
	s.keys[k.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProviderAPIKey(_ context.Context, id string) (*ProviderAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *MemoryStore) ListProviderAPIKeys(_ context.Context) ([]*ProviderAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ProviderAPIKey, 0, len(s.keys))
	for _, k := range s.keys {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) DeleteProviderAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return ErrNotFound
	}
	delete(s.keys, id)
	return nil
}

// ── Tools ────────────────────────────────────────────────────────────────────

func (s *MemoryStore) SaveTool(_ context.Context, t *Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.AgentID + "/" + t.Hash
	if _, ok := s.tools[key]; ok {
		return nil // idempotent
	}
	t.ID = newID(t.ID)
	t.CreatedAt = now()
	cp := *t
	s.tools[key] = &cp
	return nil
}

func (s *MemoryStore) ListTools(_ context.Context, agentID string) ([]*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Tool
	for _, t := range s.tools {
		if t.AgentID == agentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
