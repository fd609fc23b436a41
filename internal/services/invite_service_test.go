package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/database/testutil"
	"github.com/collabflow/collabflow/internal/models"
	"github.com/collabflow/collabflow/internal/permissions"
)

func TestCreateInviteRequiresOwner(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")
	admin := seedUser(t, db, "admin")
	member := seedUser(t, db, "member")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	addMembership(t, db, team.ID, admin.ID, models.RoleAdmin)
	addMembership(t, db, team.ID, member.ID, models.RoleMember)

	_, _, err = invites.Create(context.Background(), team.ID, admin.ID)
	require.ErrorIs(t, err, permissions.ErrInsufficientRole)

	_, _, err = invites.Create(context.Background(), team.ID, member.ID)
	require.ErrorIs(t, err, permissions.ErrInsufficientRole)

	invite, url, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, invite.IsActive)
	require.Equal(t, "https://app.example.com/invite/"+invite.Token, url)
	require.True(t, strings.HasPrefix(url, "https://app.example.com/invite/"))
}

func TestCreateInviteSupersedesPrevious(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)

	first, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	second, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	var active int64
	require.NoError(t, db.Model(&models.TeamInvite{}).
		Where("team_id = ? AND is_active = ?", team.ID, true).
		Count(&active).Error)
	require.EqualValues(t, 1, active)

	// The superseded token reads as unknown, not expired.
	joiner := seedUser(t, db, "joiner")
	_, err = invites.Redeem(context.Background(), first.Token, joiner.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestCreateInviteUnknownTeam(t *testing.T) {
	db, _, invites, _ := setupInviteService(t)
	user := seedUser(t, db, "user")

	_, _, err := invites.Create(context.Background(), "00000000-0000-0000-0000-000000000000", user.ID)
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestRedeemGrantsMemberRole(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")
	joiner := seedUser(t, db, "joiner")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	invite, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)

	joined, err := invites.Redeem(context.Background(), invite.Token, joiner.ID)
	require.NoError(t, err)
	require.Equal(t, team.ID, joined.ID)

	var membership models.TeamMembership
	require.NoError(t, db.Take(&membership, "team_id = ? AND user_id = ?", team.ID, joiner.ID).Error)
	require.Equal(t, models.RoleMember, membership.Role)
}

func TestRedeemIsSingleUse(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")
	first := seedUser(t, db, "first")
	second := seedUser(t, db, "second")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	invite, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), invite.Token, first.ID)
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), invite.Token, second.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestRedeemAlreadyMemberKeepsInviteActive(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")
	joiner := seedUser(t, db, "joiner")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	addMembership(t, db, team.ID, joiner.ID, models.RoleMember)

	invite, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), invite.Token, joiner.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)

	// The owner redeeming their own invite reports the same conflict.
	_, err = invites.Redeem(context.Background(), invite.Token, owner.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)

	// The invite stays live for somebody who actually needs it.
	var reloaded models.TeamInvite
	require.NoError(t, db.Take(&reloaded, "id = ?", invite.ID).Error)
	require.True(t, reloaded.IsActive)

	newcomer := seedUser(t, db, "newcomer")
	_, err = invites.Redeem(context.Background(), invite.Token, newcomer.ID)
	require.NoError(t, err)
}

func TestRedeemExpiredInvite(t *testing.T) {
	db, teams, invites, clock := setupInviteService(t)
	owner := seedUser(t, db, "owner")
	joiner := seedUser(t, db, "joiner")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	invite, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)

	_, err = invites.Redeem(context.Background(), invite.Token, joiner.ID)
	require.ErrorIs(t, err, ErrInviteExpired)

	// Expiry does not consume or mutate the invite; retries report the same.
	var reloaded models.TeamInvite
	require.NoError(t, db.Take(&reloaded, "id = ?", invite.ID).Error)
	require.True(t, reloaded.IsActive)

	_, err = invites.Redeem(context.Background(), invite.Token, joiner.ID)
	require.ErrorIs(t, err, ErrInviteExpired)

	var count int64
	require.NoError(t, db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", team.ID, joiner.ID).
		Count(&count).Error)
	require.Zero(t, count)
}

func TestRedeemUnknownTokenOrUser(t *testing.T) {
	db, teams, invites, _ := setupInviteService(t)
	owner := seedUser(t, db, "owner")

	team, err := teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: "crew"})
	require.NoError(t, err)
	invite, _, err := invites.Create(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)

	joiner := seedUser(t, db, "joiner")
	_, err = invites.Redeem(context.Background(), "never-issued", joiner.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = invites.Redeem(context.Background(), "", joiner.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = invites.Redeem(context.Background(), invite.Token, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func setupInviteService(t *testing.T) (*gorm.DB, *TeamService, *InviteService, *testClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	clock := &testClock{current: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)}

	teams, err := NewTeamService(db, nil, TeamConfig{Clock: clock.Now})
	require.NoError(t, err)

	invites, err := NewInviteService(db, nil, InviteConfig{
		BaseURL: "https://app.example.com",
		Clock:   clock.Now,
	})
	require.NoError(t, err)

	return db, teams, invites, clock
}
