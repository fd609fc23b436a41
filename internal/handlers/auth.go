package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/collabflow/collabflow/internal/auth"
	"github.com/collabflow/collabflow/internal/models"
	"github.com/collabflow/collabflow/internal/services"
	appErrors "github.com/collabflow/collabflow/pkg/errors"
	"github.com/collabflow/collabflow/pkg/response"
)

// RefreshCookieName is the cookie carrying the rotating refresh token.
const RefreshCookieName = "refresh_token"

var (
	errInvalidCredentials  = appErrors.New("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)
	errInvalidRefreshToken = appErrors.New("INVALID_REFRESH_TOKEN", "Invalid refresh token", http.StatusUnauthorized)
	errRefreshTokenExpired = appErrors.New("REFRESH_TOKEN_EXPIRED", "Refresh token has expired", http.StatusUnauthorized)
)

// AuthHandler manages authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	sessions   *iauth.SessionService
	users      *services.UserService
	cookieTTL  time.Duration
	cookiePath string
}

// NewAuthHandler constructs an AuthHandler. cookieTTL bounds the lifetime of
// the refresh cookie and should match the session refresh TTL.
func NewAuthHandler(sessions *iauth.SessionService, users *services.UserService, cookieTTL time.Duration) (*AuthHandler, error) {
	if sessions == nil {
		return nil, errors.New("auth handler: session service is required")
	}
	if users == nil {
		return nil, errors.New("auth handler: user service is required")
	}
	if cookieTTL <= 0 {
		cookieTTL = iauth.DefaultRefreshTokenTTL
	}
	return &AuthHandler{
		sessions:   sessions,
		users:      users,
		cookieTTL:  cookieTTL,
		cookiePath: "/",
	}, nil
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": userPayload(user)})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, user, err := h.sessions.Authenticate(requestContext(c), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, iauth.ErrInvalidCredentials) {
			response.Error(c, errInvalidCredentials)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken},
		"user":   userPayload(user),
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	presented, err := c.Cookie(RefreshCookieName)
	if err != nil || presented == "" {
		response.Error(c, errInvalidRefreshToken)
		return
	}

	pair, err := h.sessions.Refresh(requestContext(c), presented)
	if err != nil {
		h.clearRefreshCookie(c)
		switch {
		case errors.Is(err, iauth.ErrRefreshTokenExpired):
			response.Error(c, errRefreshTokenExpired)
		case errors.Is(err, iauth.ErrInvalidRefreshToken):
			response.Error(c, errInvalidRefreshToken)
		default:
			response.Error(c, appErrors.ErrInternalServer)
		}
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken},
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if presented, err := c.Cookie(RefreshCookieName); err == nil && presented != "" {
		if err := h.sessions.Logout(requestContext(c), presented); err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
	}

	h.clearRefreshCookie(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userPayload(user)})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, int(h.cookieTTL.Seconds()), h.cookiePath, "", true, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, h.cookiePath, "", true, true)
}
