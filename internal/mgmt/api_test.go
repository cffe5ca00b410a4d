package mgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/nulpointcorp/agent-gateway/internal/store"
)

const testToken = "admin-secret"

func serveAPI(t *testing.T, a *API) *http.Client {
	t.Helper()
	r := router.New()
	a.Register(r)

	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = fasthttp.Serve(ln, r.Handler)
	}()
	t.Cleanup(func() { _ = ln.Close() })

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func newAPI(t *testing.T) (*API, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	cipher, err := store.NewCipher("0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	return New(st, cipher, nil, testToken, []byte("jwt-secret"), nil), st
}

func do(t *testing.T, client *http.Client, method, path, body, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, "http://mgmt"+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func TestRequireAuth(t *testing.T) {
	a, _ := newAPI(t)
	client := serveAPI(t, a)

	status, _ := do(t, client, "GET", basePath+"/agents", "", "")
	if status != 401 {
		t.Fatalf("status without token = %d", status)
	}
	status, _ = do(t, client, "GET", basePath+"/agents", "", "wrong")
	if status != 401 {
		t.Fatalf("status with wrong token = %d", status)
	}
	status, _ = do(t, client, "GET", basePath+"/agents", "", testToken)
	if status != 200 {
		t.Fatalf("status with token = %d", status)
	}
}

func TestLoginIssuesSessionJWT(t *testing.T) {
	a, _ := newAPI(t)
	client := serveAPI(t, a)

	status, body := do(t, client, "POST", basePath+"/auth/login", `{"token":"wrong"}`, "")
	if status != 401 {
		t.Fatalf("login with wrong token = %d, body %s", status, body)
	}

	status, body = do(t, client, "POST", basePath+"/auth/login", `{"token":"`+testToken+`"}`, "")
	if status != 200 {
		t.Fatalf("login = %d, body %s", status, body)
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatal(err)
	}
	if session.Token == "" {
		t.Fatal("empty session token")
	}

	// The session token is accepted as a credential.
	status, _ = do(t, client, "GET", basePath+"/agents", "", session.Token)
	if status != 200 {
		t.Fatalf("status with session token = %d", status)
	}
}

func TestAgentSkillConfigurationFlow(t *testing.T) {
	a, _ := newAPI(t)
	client := serveAPI(t, a)

	status, body := do(t, client, "POST", basePath+"/agents", `{"name":"support-bot"}`, testToken)
	if status != 201 {
		t.Fatalf("create agent = %d, body %s", status, body)
	}
	var agent store.Agent
	if err := json.Unmarshal(body, &agent); err != nil {
		t.Fatal(err)
	}
	if agent.ID == "" {
		t.Fatal("agent id not assigned")
	}

	// Duplicate names conflict.
	status, _ = do(t, client, "POST", basePath+"/agents", `{"name":"support-bot"}`, testToken)
	if status != 409 {
		t.Fatalf("duplicate agent = %d", status)
	}

	status, body = do(t, client, "POST", basePath+"/agents/"+agent.ID+"/skills", `{"name":"triage"}`, testToken)
	if status != 201 {
		t.Fatalf("create skill = %d, body %s", status, body)
	}
	var skill store.Skill
	if err := json.Unmarshal(body, &skill); err != nil {
		t.Fatal(err)
	}

	status, body = do(t, client, "POST", basePath+"/provider-keys",
		`{"ai_provider":"anthropic","api_key":"sk-live-secret"}`, testToken)
	if status != 201 {
		t.Fatalf("create key = %d, body %s", status, body)
	}
	if bytes.Contains(body, []byte("sk-live-secret")) {
		t.Fatal("key material leaked in create response")
	}
	var key providerKeyView
	if err := json.Unmarshal(body, &key); err != nil {
		t.Fatal(err)
	}

	status, body = do(t, client, "POST", basePath+"/models",
		`{"ai_provider_api_key_id":"`+key.ID+`","model_name":"claude-3-haiku-20240307","model_type":"text"}`, testToken)
	if status != 201 {
		t.Fatalf("create model = %d, body %s", status, body)
	}
	var model store.Model
	if err := json.Unmarshal(body, &model); err != nil {
		t.Fatal(err)
	}

	cfg := `{"name":"default","data":{"current":{"params":{"model_id":"` + model.ID + `","system_prompt":"You help {{name}}."}}}}`
	status, body = do(t, client, "POST", basePath+"/skills/"+skill.ID+"/configurations", cfg, testToken)
	if status != 201 {
		t.Fatalf("create configuration = %d, body %s", status, body)
	}

	status, body = do(t, client, "GET", basePath+"/skills/"+skill.ID+"/configurations", "", testToken)
	if status != 200 {
		t.Fatalf("list configurations = %d", status)
	}
	var cfgs []store.SkillConfiguration
	if err := json.Unmarshal(body, &cfgs); err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 1 || cfgs[0].Name != "default" {
		t.Fatalf("configurations = %+v", cfgs)
	}
}

func TestConfigurationRequiresCurrentVersion(t *testing.T) {
	a, _ := newAPI(t)
	client := serveAPI(t, a)

	status, body := do(t, client, "POST", basePath+"/skills/s1/configurations",
		`{"name":"default","data":{"v1":{"params":{"model_id":"m1"}}}}`, testToken)
	if status != 400 {
		t.Fatalf("status = %d, body %s", status, body)
	}
}

func TestListKeysHidesCiphertext(t *testing.T) {
	a, st := newAPI(t)
	client := serveAPI(t, a)

	enc, err := a.cipher.Encrypt("sk-live-secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.CreateProviderAPIKey(context.Background(), &store.ProviderAPIKey{
		Provider: "openai", EncryptedKey: enc,
	}); err != nil {
		t.Fatal(err)
	}

	status, body := do(t, client, "GET", basePath+"/provider-keys", "", testToken)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if bytes.Contains(body, []byte(enc)) || bytes.Contains(body, []byte("sk-live-secret")) {
		t.Fatalf("key material leaked: %s", body)
	}
}

func TestDeleteAgentCascades(t *testing.T) {
	a, st := newAPI(t)
	client := serveAPI(t, a)
	ctx := context.Background()

	agent := &store.Agent{Name: "bot"}
	if err := st.CreateAgent(ctx, agent); err != nil {
		t.Fatal(err)
	}
	skill := &store.Skill{AgentID: agent.ID, Name: "triage"}
	if err := st.CreateSkill(ctx, skill); err != nil {
		t.Fatal(err)
	}

	status, _ := do(t, client, "DELETE", basePath+"/agents/"+agent.ID, "", testToken)
	if status != 204 {
		t.Fatalf("delete = %d", status)
	}
	if _, err := st.GetSkillByName(ctx, agent.ID, "triage"); err == nil {
		t.Fatal("skill must be deleted with the agent")
	}
}
