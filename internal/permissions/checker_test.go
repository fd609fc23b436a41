package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/database/testutil"
	"github.com/collabflow/collabflow/internal/models"
)

func TestRoleSetContains(t *testing.T) {
	set := NewRoleSet(models.RoleOwner, models.RoleAdmin)

	require.True(t, set.Contains(models.RoleOwner))
	require.True(t, set.Contains(models.RoleAdmin))
	require.False(t, set.Contains(models.RoleMember))
	require.False(t, set.Contains(models.TeamRole("SUPERVISOR")))
}

func TestOperationRoleSets(t *testing.T) {
	require.True(t, TeamUpdate.Contains(models.RoleOwner))
	require.True(t, TeamUpdate.Contains(models.RoleAdmin))
	require.False(t, TeamUpdate.Contains(models.RoleMember))

	require.True(t, TeamDelete.Contains(models.RoleOwner))
	require.False(t, TeamDelete.Contains(models.RoleAdmin))

	require.True(t, InviteCreate.Contains(models.RoleOwner))
	require.False(t, InviteCreate.Contains(models.RoleAdmin))
	require.False(t, InviteCreate.Contains(models.RoleMember))
}

func TestRequireMember(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	team, member, outsider := seedMembership(t, db, models.RoleMember)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	membership, err := checker.RequireMember(context.Background(), team.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, membership.Role)

	_, err = checker.RequireMember(context.Background(), team.ID, outsider.ID)
	require.ErrorIs(t, err, ErrNotAMember)

	_, err = checker.RequireMember(context.Background(), team.ID, "")
	require.ErrorIs(t, err, ErrNotAMember)
}

func TestRequireRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	team, member, outsider := seedMembership(t, db, models.RoleAdmin)

	checker, err := NewChecker(db)
	require.NoError(t, err)

	_, err = checker.RequireRole(context.Background(), team.ID, member.ID, TeamUpdate)
	require.NoError(t, err)

	_, err = checker.RequireRole(context.Background(), team.ID, member.ID, TeamDelete)
	require.ErrorIs(t, err, ErrInsufficientRole)

	// Non-members fail the membership check before any role comparison.
	_, err = checker.RequireRole(context.Background(), team.ID, outsider.ID, TeamUpdate)
	require.ErrorIs(t, err, ErrNotAMember)
}

func seedMembership(t *testing.T, db *gorm.DB, role models.TeamRole) (*models.Team, *models.User, *models.User) {
	t.Helper()

	member := &models.User{Username: "member", Email: "member@example.com", Password: "x"}
	outsider := &models.User{Username: "outsider", Email: "outsider@example.com", Password: "x"}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(outsider).Error)

	team := &models.Team{Name: "crew"}
	require.NoError(t, db.Create(team).Error)

	require.NoError(t, db.Create(&models.TeamMembership{
		TeamID:   team.ID,
		UserID:   member.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}).Error)

	return team, member, outsider
}
