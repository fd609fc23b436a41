package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/collabflow/collabflow/internal/auth"
	"github.com/collabflow/collabflow/internal/handlers"
	"github.com/collabflow/collabflow/internal/middleware"
)

func registerTeamRoutes(r *gin.Engine, jwt *iauth.JWTService, svcs Services) error {
	teamHandler, err := handlers.NewTeamHandler(svcs.Teams)
	if err != nil {
		return err
	}
	inviteHandler, err := handlers.NewInviteHandler(svcs.Invites)
	if err != nil {
		return err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	teams := api.Group("/teams")
	{
		teams.GET("", teamHandler.List)
		teams.POST("", teamHandler.Create)
		teams.GET("/:id", teamHandler.Get)
		teams.PATCH("/:id", teamHandler.Update)
		teams.DELETE("/:id", teamHandler.Delete)
		teams.GET("/:id/members", teamHandler.ListMembers)
		teams.POST("/:id/invites", inviteHandler.Create)
	}

	api.POST("/invites/:token/redeem", inviteHandler.Redeem)

	return nil
}
