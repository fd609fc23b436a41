package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/collabflow/collabflow/internal/services"
	appErrors "github.com/collabflow/collabflow/pkg/errors"
	"github.com/collabflow/collabflow/pkg/response"
)

// TeamHandler exposes team lifecycle and membership listing endpoints.
type TeamHandler struct {
	teams *services.TeamService
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(teams *services.TeamService) (*TeamHandler, error) {
	if teams == nil {
		return nil, errors.New("team handler: team service is required")
	}
	return &TeamHandler{teams: teams}, nil
}

type createTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=1024"`
}

type updateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teams.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"teams": teams})
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.GetByID(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"team": team})
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(c, appErrors.NewBadRequest("team name is required"))
		return
	}

	team, err := h.teams.Create(requestContext(c), currentUserID(c), services.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"team": team})
}

// PATCH /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	var req updateTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	team, err := h.teams.Update(requestContext(c), c.Param("id"), currentUserID(c), services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"team": team})
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.teams.Delete(requestContext(c), c.Param("id"), currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.teams.ListMembers(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}
