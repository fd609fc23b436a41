package permissions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/models"
	apperrors "github.com/collabflow/collabflow/pkg/errors"
)

var (
	// ErrNotAMember indicates the user holds no membership on the team.
	ErrNotAMember = apperrors.New("NOT_A_MEMBER", "User is not a member of this team", http.StatusForbidden)
	// ErrInsufficientRole indicates the membership's role is outside the operation's allowed set.
	ErrInsufficientRole = apperrors.New("INSUFFICIENT_ROLE", "User does not have permission to perform this action", http.StatusForbidden)
)

// Checker evaluates role-based permission checks over a team's membership set.
// It is stateless; the caller's identity is always an explicit parameter.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a membership checker. Pass a transaction handle to
// evaluate checks inside an enclosing unit of work.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permissions: db is required")
	}
	return &Checker{db: db}, nil
}

// RequireMember loads the caller's membership on the team, failing when none exists.
func (c *Checker) RequireMember(ctx context.Context, teamID, userID string) (*models.TeamMembership, error) {
	teamID = strings.TrimSpace(teamID)
	userID = strings.TrimSpace(userID)
	if teamID == "" || userID == "" {
		return nil, ErrNotAMember
	}

	var membership models.TeamMembership
	err := c.db.WithContext(ctx).
		Take(&membership, "team_id = ? AND user_id = ?", teamID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("permissions: load membership: %w", err)
	}

	return &membership, nil
}

// RequireRole loads the caller's membership and checks its role against the
// operation's allowed set.
func (c *Checker) RequireRole(ctx context.Context, teamID, userID string, allowed RoleSet) (*models.TeamMembership, error) {
	membership, err := c.RequireMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}

	if !allowed.Contains(membership.Role) {
		return nil, ErrInsufficientRole
	}

	return membership, nil
}
