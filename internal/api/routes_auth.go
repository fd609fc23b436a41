package api

import (
	"github.com/gin-gonic/gin"

	"github.com/collabflow/collabflow/internal/app"
	iauth "github.com/collabflow/collabflow/internal/auth"
	"github.com/collabflow/collabflow/internal/handlers"
	"github.com/collabflow/collabflow/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, jwt *iauth.JWTService, cfg *app.Config, svcs Services) error {
	authHandler, err := handlers.NewAuthHandler(svcs.Sessions, svcs.Users, cfg.Auth.Session.RefreshTTL)
	if err != nil {
		return err
	}

	// Public auth routes. Refresh and logout authenticate via the refresh
	// cookie rather than a bearer token.
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))
	api.GET("/auth/me", authHandler.Me)

	return nil
}
