package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/api"
	"github.com/collabflow/collabflow/internal/app"
	iauth "github.com/collabflow/collabflow/internal/auth"
	sharedtestutil "github.com/collabflow/collabflow/internal/database/testutil"
	"github.com/collabflow/collabflow/internal/services"
	"github.com/collabflow/collabflow/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{
			BaseURL: "https://app.example.com",
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:    jwtSecret,
				Issuer:    "test-suite",
				AccessTTL: time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL: 24 * time.Hour,
			},
		},
		Invites: app.InviteConfig{
			TTL: 7 * 24 * time.Hour,
		},
	}

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	userSvc, err := services.NewUserService(db, nil)
	require.NoError(t, err)
	teamSvc, err := services.NewTeamService(db, nil, services.TeamConfig{})
	require.NoError(t, err)
	inviteSvc, err := services.NewInviteService(db, nil, services.InviteConfig{
		BaseURL: cfg.Server.BaseURL,
		TTL:     cfg.Invites.TTL,
	})
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, api.Services{
		Sessions: sessionSvc,
		Users:    userSvc,
		Teams:    teamSvc,
		Invites:  inviteSvc,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
	}
}

// RegisterUser provisions an account through the public registration endpoint.
func (e *Env) RegisterUser(password string) string {
	e.T.Helper()

	username := "user-" + uuid.NewString()[:8]
	payload := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	return username
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenPayload mirrors the tokens object in auth responses.
type TokenPayload struct {
	AccessToken string `json:"access_token"`
}

// LoginResult bundles the JSON response from POST /api/auth/login plus the
// refresh cookie set alongside it.
type LoginResult struct {
	Tokens        TokenPayload `json:"tokens"`
	User          UserPayload  `json:"user"`
	RefreshCookie *http.Cookie `json:"-"`
}

// Login authenticates and returns the issued access token and refresh cookie.
func (e *Env) Login(identifier, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)

	result.RefreshCookie = findCookie(w.Result().Cookies(), "refresh_token")
	require.NotNil(e.T, result.RefreshCookie)
	require.NotEmpty(e.T, result.RefreshCookie.Value)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range cookies {
		if cookie != nil {
			req.AddCookie(cookie)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
