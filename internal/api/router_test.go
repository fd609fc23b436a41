package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/app"
	iauth "github.com/collabflow/collabflow/internal/auth"
	"github.com/collabflow/collabflow/internal/database/testutil"
	"github.com/collabflow/collabflow/internal/services"
)

func buildTestRouter(t *testing.T, cfg *app.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	userSvc, err := services.NewUserService(db, nil)
	require.NoError(t, err)
	teamSvc, err := services.NewTeamService(db, nil, services.TeamConfig{})
	require.NoError(t, err)
	inviteSvc, err := services.NewInviteService(db, nil, services.InviteConfig{
		BaseURL: "https://app.example.com",
	})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, Services{
		Sessions: sessionSvc,
		Users:    userSvc,
		Teams:    teamSvc,
		Invites:  inviteSvc,
	})
	require.NoError(t, err)

	return router, db
}

func TestRouterHealthEndpoint(t *testing.T) {
	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}
	router, _ := buildTestRouter(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	router, _ := buildTestRouter(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "go_goroutines") ||
		strings.Contains(w.Body.String(), "collabflow_"))
}

func TestRouterDisabledMonitoring(t *testing.T) {
	router, _ := buildTestRouter(t, &app.Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterProtectedRoutesRequireBearer(t *testing.T) {
	router, _ := buildTestRouter(t, &app.Config{})

	for _, path := range []string{"/api/teams", "/api/auth/me"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(nil, nil, nil, Services{})
	require.Error(t, err)
}
