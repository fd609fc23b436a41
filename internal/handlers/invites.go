package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collabflow/collabflow/internal/services"
	"github.com/collabflow/collabflow/pkg/response"
)

// InviteHandler exposes invite issuance and redemption endpoints.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) (*InviteHandler, error) {
	if invites == nil {
		return nil, errors.New("invite handler: invite service is required")
	}
	return &InviteHandler{invites: invites}, nil
}

// POST /api/teams/:id/invites
func (h *InviteHandler) Create(c *gin.Context) {
	invite, url, err := h.invites.Create(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"invite_url": url,
		"expires_at": invite.ExpiresAt,
	})
}

// POST /api/invites/:token/redeem
func (h *InviteHandler) Redeem(c *gin.Context) {
	team, err := h.invites.Redeem(requestContext(c), c.Param("token"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"team": team})
}
