// Package mgmt is the management API: CRUD for agents, skills, versioned
// skill configurations, models, and provider API keys, plus captured-tool
// listing and the live dispatch trace feed. It mounts under
// /v1/reactive-agents and shares the gateway's credentials.
package mgmt

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/agent-gateway/internal/logger"
	"github.com/nulpointcorp/agent-gateway/internal/store"
	"github.com/nulpointcorp/agent-gateway/pkg/apierr"
)

const basePath = "/v1/reactive-agents"

// sessionTTL is the lifetime of a login-issued session token.
const sessionTTL = 24 * time.Hour

// API serves the management surface.
type API struct {
	st        store.Store
	cipher    *store.Cipher
	feed      *logger.LiveFeed
	authToken string
	jwtSecret []byte
	log       *slog.Logger
}

func New(st store.Store, cipher *store.Cipher, feed *logger.LiveFeed, authToken string, jwtSecret []byte, slogger *slog.Logger) *API {
	if slogger == nil {
		slogger = slog.Default()
	}
	return &API{
		st:        st,
		cipher:    cipher,
		feed:      feed,
		authToken: authToken,
		jwtSecret: jwtSecret,
		log:       slogger,
	}
}

// Register mounts the management routes. Everything except the auth
// endpoints requires the gateway credential.
func (a *API) Register(r *router.Router) {
	r.POST(basePath+"/auth/login", a.handleLogin)

	guard := a.requireAuth

	r.POST(basePath+"/agents", guard(a.handleCreateAgent))
	r.GET(basePath+"/agents", guard(a.handleListAgents))
	r.GET(basePath+"/agents/{id}", guard(a.handleGetAgent))
	r.PUT(basePath+"/agents/{id}", guard(a.handleUpdateAgent))
	r.DELETE(basePath+"/agents/{id}", guard(a.handleDeleteAgent))

	r.POST(basePath+"/agents/{id}/skills", guard(a.handleCreateSkill))
	r.GET(basePath+"/agents/{id}/skills", guard(a.handleListSkills))
	r.PUT(basePath+"/skills/{id}", guard(a.handleUpdateSkill))
	r.DELETE(basePath+"/skills/{id}", guard(a.handleDeleteSkill))

	r.POST(basePath+"/skills/{id}/configurations", guard(a.handleCreateConfiguration))
	r.GET(basePath+"/skills/{id}/configurations", guard(a.handleListConfigurations))
	r.PUT(basePath+"/configurations/{id}", guard(a.handleUpdateConfiguration))
	r.DELETE(basePath+"/configurations/{id}", guard(a.handleDeleteConfiguration))

	r.POST(basePath+"/models", guard(a.handleCreateModel))
	r.GET(basePath+"/models", guard(a.handleListModels))
	r.DELETE(basePath+"/models/{id}", guard(a.handleDeleteModel))

	r.POST(basePath+"/provider-keys", guard(a.handleCreateProviderKey))
	r.GET(basePath+"/provider-keys", guard(a.handleListProviderKeys))
	r.DELETE(basePath+"/provider-keys/{id}", guard(a.handleDeleteProviderKey))

	r.GET(basePath+"/agents/{id}/tools", guard(a.handleListTools))

	if a.feed != nil {
		r.GET(basePath+"/traces/live", guard(a.handleLiveTraces))
	}
}

// handleLogin exchanges the static gateway token for a short-lived session
// JWT. With no JWT secret configured the endpoint is disabled.
func (a *API) handleLogin(ctx *fasthttp.RequestCtx) {
	if len(a.jwtSecret) == 0 || a.authToken == "" {
		apierr.Write(ctx, fasthttp.StatusNotFound, "session login is not configured",
			apierr.TypeNotFound, apierr.CodeNotFound)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest, "invalid JSON body",
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(a.authToken)) != 1 {
		apierr.WriteUnauthorized(ctx, "invalid token")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	})
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		apierr.Write(ctx, fasthttp.StatusInternalServerError, "sign session token",
			apierr.TypeServerError, apierr.CodeInternalError)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"token":      signed,
		"expires_at": now.Add(sessionTTL).Unix(),
	})
}

// requireAuth guards a management handler with the gateway credential: the
// static token or a valid session JWT. Open gateways stay open.
func (a *API) requireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if a.authToken == "" && len(a.jwtSecret) == 0 {
			next(ctx)
			return
		}
		token := bearerToken(string(ctx.Request.Header.Peek("Authorization")))
		if token == "" {
			apierr.WriteUnauthorized(ctx, "missing bearer token")
			return
		}
		if a.authToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.authToken)) == 1 {
			next(ctx)
			return
		}
		if len(a.jwtSecret) > 0 {
			_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return a.jwtSecret, nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err == nil {
				next(ctx)
				return
			}
		}
		apierr.WriteUnauthorized(ctx, "invalid credentials")
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// handleLiveTraces streams completed dispatch logs as SSE until the client
// disconnects.
func (a *API) handleLiveTraces(ctx *fasthttp.RequestCtx) {
	ch, cancel := a.feed.Subscribe(64)

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.SetStatusCode(fasthttp.StatusOK)

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for entry := range ch {
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}
