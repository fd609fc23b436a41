package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/collabflow/collabflow/internal/models"
	"github.com/collabflow/collabflow/internal/permissions"
	"github.com/collabflow/collabflow/pkg/crypto"
	apperrors "github.com/collabflow/collabflow/pkg/errors"
	"github.com/collabflow/collabflow/pkg/metrics"
)

var (
	// ErrInviteNotFound covers unknown and superseded invite tokens alike.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	// ErrInviteExpired indicates the invite's expiry instant has passed.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "Invite has expired", http.StatusGone)
	// ErrAlreadyMember indicates the redeeming user already belongs to the team.
	ErrAlreadyMember = apperrors.New("ALREADY_MEMBER", "User is already a member of this team", http.StatusConflict)
)

const (
	defaultInviteTTL         = 7 * 24 * time.Hour
	defaultInviteTokenLength = 32
)

// InviteConfig describes tunable behaviour for the InviteService.
type InviteConfig struct {
	// BaseURL is the public frontend origin used to build invite links.
	BaseURL string
	// TTL is the validity window of a newly created invite.
	TTL time.Duration
	// TokenLength is the number of random bytes backing an invite token.
	TokenLength int
	Clock       func() time.Time
}

// InviteService manages team invite links. At most one invite per team is
// active at any instant, and each invite admits exactly one user.
type InviteService struct {
	db           *gorm.DB
	auditService *AuditService
	baseURL      string
	ttl          time.Duration
	tokenLength  int
	now          func() time.Time
}

// NewInviteService constructs an InviteService instance.
func NewInviteService(db *gorm.DB, auditService *AuditService, cfg InviteConfig) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("invite service: base url is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}

	tokenLength := cfg.TokenLength
	if tokenLength <= 0 {
		tokenLength = defaultInviteTokenLength
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &InviteService{
		db:           db,
		auditService: auditService,
		baseURL:      baseURL,
		ttl:          ttl,
		tokenLength:  tokenLength,
		now:          clock,
	}, nil
}

// Create issues a fresh invite for the team and deactivates every invite that
// came before it. Requires OWNER. Returns the invite and its shareable URL.
func (s *InviteService) Create(ctx context.Context, teamID, userID string) (*models.TeamInvite, string, error) {
	ctx = ensureContext(ctx)

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("invite service: generate token: %w", err)
	}

	now := s.now()
	invite := &models.TeamInvite{
		TeamID:      strings.TrimSpace(teamID),
		InvitedByID: strings.TrimSpace(userID),
		Token:       token,
		ExpiresAt:   now.Add(s.ttl),
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.Take(&team, "id = ?", invite.TeamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("invite service: load team: %w", err)
		}

		checker, err := permissions.NewChecker(tx)
		if err != nil {
			return err
		}
		if _, err := checker.RequireRole(ctx, invite.TeamID, invite.InvitedByID, permissions.InviteCreate); err != nil {
			return err
		}

		if err := tx.Model(&models.TeamInvite{}).
			Where("team_id = ? AND is_active = ?", invite.TeamID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("invite service: deactivate invites: %w", err)
		}

		if err := tx.Create(invite).Error; err != nil {
			return fmt.Errorf("invite service: create invite: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &invite.InvitedByID,
		Action:   "invite.create",
		Resource: invite.TeamID,
		Result:   "success",
	})

	return invite, fmt.Sprintf("%s/invite/%s", s.baseURL, invite.Token), nil
}

// Redeem consumes an active invite and grants the user a MEMBER role on the
// team. An expired invite stays untouched so the failure is reported the same
// way on every retry. A user who is already a member gets ErrAlreadyMember and
// the invite remains active for somebody else.
func (s *InviteService) Redeem(ctx context.Context, token, userID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	if token == "" {
		metrics.InviteRedemptions.WithLabelValues("not_found").Inc()
		return nil, ErrInviteNotFound
	}

	var team models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.TeamInvite
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&invite, "token = ? AND is_active = ?", token, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return fmt.Errorf("invite service: load invite: %w", err)
		}

		if !invite.ExpiresAt.After(s.now()) {
			return ErrInviteExpired
		}

		var user models.User
		if err := tx.Take(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("invite service: load user: %w", err)
		}

		var count int64
		if err := tx.Model(&models.TeamMembership{}).
			Where("team_id = ? AND user_id = ?", invite.TeamID, userID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("invite service: check membership: %w", err)
		}
		if count > 0 {
			return ErrAlreadyMember
		}

		membership := &models.TeamMembership{
			TeamID:   invite.TeamID,
			UserID:   userID,
			Role:     models.RoleMember,
			JoinedAt: s.now(),
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("invite service: create membership: %w", err)
		}

		if err := tx.Model(&invite).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("invite service: consume invite: %w", err)
		}

		return tx.Take(&team, "id = ?", invite.TeamID).Error
	})
	if err != nil {
		metrics.InviteRedemptions.WithLabelValues(redemptionResult(err)).Inc()
		return nil, err
	}

	metrics.InviteRedemptions.WithLabelValues("success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "invite.redeem",
		Resource: team.ID,
		Result:   "success",
	})

	return &team, nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, ErrInviteNotFound):
		return "not_found"
	case errors.Is(err, ErrInviteExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	default:
		return "error"
	}
}
