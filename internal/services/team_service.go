package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/models"
	"github.com/collabflow/collabflow/internal/permissions"
	apperrors "github.com/collabflow/collabflow/pkg/errors"
)

// ErrTeamNotFound indicates the requested team does not exist.
var ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name        string
	Description string
}

// UpdateTeamInput describes mutable team fields. Nil pointers leave the
// corresponding field untouched.
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// TeamConfig describes tunable behaviour for the TeamService.
type TeamConfig struct {
	Clock func() time.Time
}

// TeamService owns the consistency of a team and its membership set. Every
// authorization-sensitive operation takes the caller's identity as an explicit
// parameter.
type TeamService struct {
	db           *gorm.DB
	auditService *AuditService
	now          func() time.Time
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, auditService *AuditService, cfg TeamConfig) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &TeamService{
		db:           db,
		auditService: auditService,
		now:          clock,
	}, nil
}

// Create registers a new team and, in the same transaction, an OWNER
// membership for the creator. A team never exists without its owner.
func (s *TeamService) Create(ctx context.Context, ownerID string, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.NewBadRequest("owner id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("team service: create team: %w", err)
		}

		membership := &models.TeamMembership{
			TeamID:   team.ID,
			UserID:   ownerID,
			Role:     models.RoleOwner,
			JoinedAt: s.now(),
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("team service: create owner membership: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &ownerID,
		Action:   "team.create",
		Resource: team.ID,
		Result:   "success",
		Metadata: map[string]any{"name": team.Name},
	})

	return team, nil
}

// GetByID loads a team; the caller must hold a membership on it.
func (s *TeamService) GetByID(ctx context.Context, teamID, userID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	team, err := s.loadTeam(ctx, s.db, teamID)
	if err != nil {
		return nil, err
	}

	checker, err := permissions.NewChecker(s.db)
	if err != nil {
		return nil, err
	}
	if _, err := checker.RequireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}

	return team, nil
}

// Update applies a partial update to team metadata. Requires OWNER or ADMIN.
// The updated-at timestamp is bumped even when no field changes.
func (s *TeamService) Update(ctx context.Context, teamID, userID string, input UpdateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = s.loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}

		checker, err := permissions.NewChecker(tx)
		if err != nil {
			return err
		}
		if _, err := checker.RequireRole(ctx, teamID, userID, permissions.TeamUpdate); err != nil {
			return err
		}

		updates := map[string]any{
			"updated_at": s.now(),
		}
		if input.Name != nil {
			if name := strings.TrimSpace(*input.Name); name != "" {
				updates["name"] = name
			}
		}
		if input.Description != nil {
			updates["description"] = strings.TrimSpace(*input.Description)
		}

		if err := tx.Model(team).Updates(updates).Error; err != nil {
			return fmt.Errorf("team service: update team: %w", err)
		}

		return tx.Take(team, "id = ?", teamID).Error
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.update",
		Resource: team.ID,
		Result:   "success",
	})

	return team, nil
}

// Delete removes a team and its memberships and invites. Requires OWNER.
func (s *TeamService) Delete(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := s.loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}

		checker, err := permissions.NewChecker(tx)
		if err != nil {
			return err
		}
		if _, err := checker.RequireRole(ctx, teamID, userID, permissions.TeamDelete); err != nil {
			return err
		}

		if err := tx.Delete(&models.TeamMembership{}, "team_id = ?", teamID).Error; err != nil {
			return fmt.Errorf("team service: delete memberships: %w", err)
		}
		if err := tx.Delete(&models.TeamInvite{}, "team_id = ?", teamID).Error; err != nil {
			return fmt.Errorf("team service: delete invites: %w", err)
		}
		if err := tx.Delete(team).Error; err != nil {
			return fmt.Errorf("team service: delete team: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.delete",
		Resource: teamID,
		Result:   "success",
	})

	return nil
}

// ListForUser returns the teams the user belongs to, newest first. Each call
// re-queries current state rather than serving a frozen snapshot.
func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	var teams []models.Team
	err := s.db.WithContext(ctx).
		Joins("JOIN team_memberships ON team_memberships.team_id = teams.id").
		Where("team_memberships.user_id = ?", strings.TrimSpace(userID)).
		Order("teams.created_at DESC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}

	return teams, nil
}

// ListMembers returns the deduplicated set of users holding a membership on
// the team. The caller must itself be a member.
func (s *TeamService) ListMembers(ctx context.Context, teamID, userID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	if _, err := s.loadTeam(ctx, s.db, teamID); err != nil {
		return nil, err
	}

	checker, err := permissions.NewChecker(s.db)
	if err != nil {
		return nil, err
	}
	if _, err := checker.RequireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}

	var memberships []models.TeamMembership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Find(&memberships, "team_id = ?", teamID).Error; err != nil {
		return nil, fmt.Errorf("team service: load memberships: %w", err)
	}

	seen := make(map[string]struct{}, len(memberships))
	users := make([]models.User, 0, len(memberships))
	for _, membership := range memberships {
		if membership.User == nil {
			continue
		}
		if _, ok := seen[membership.UserID]; ok {
			continue
		}
		seen[membership.UserID] = struct{}{}
		users = append(users, *membership.User)
	}

	return users, nil
}

func (s *TeamService) loadTeam(ctx context.Context, db *gorm.DB, teamID string) (*models.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, ErrTeamNotFound
	}

	var team models.Team
	err := db.WithContext(ctx).Take(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}

	return &team, nil
}
