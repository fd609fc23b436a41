package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/app"
	iauth "github.com/collabflow/collabflow/internal/auth"
	"github.com/collabflow/collabflow/internal/handlers"
	"github.com/collabflow/collabflow/internal/middleware"
	"github.com/collabflow/collabflow/internal/services"
)

// Services bundles the constructed service layer passed into the router.
type Services struct {
	Sessions *iauth.SessionService
	Users    *services.UserService
	Teams    *services.TeamService
	Invites  *services.InviteService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Sessions == nil || svcs.Users == nil || svcs.Teams == nil || svcs.Invites == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	if err := registerAuthRoutes(r, jwt, cfg, svcs); err != nil {
		return nil, err
	}
	if err := registerTeamRoutes(r, jwt, svcs); err != nil {
		return nil, err
	}

	return r, nil
}
