package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collabflow/collabflow/internal/database/testutil"
	"github.com/collabflow/collabflow/pkg/crypto"
)

func TestRegisterHashesPasswordAndNormalisesEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    " Alice@Example.COM ",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "hunter2hunter2", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "hunter2hunter2"))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice2",
		Email:    "ALICE@example.com",
		Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegistrationConflictNamesTheRightField(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	err = svc.registrationConflict(context.Background(), "alice", "fresh@example.com")
	require.ErrorIs(t, err, ErrUsernameTaken)

	err = svc.registrationConflict(context.Background(), "fresh", "alice@example.com")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Username: "alice"})
	require.Error(t, err)
}

func TestGetByID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	created, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Username, got.Username)

	_, err = svc.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuditServiceLogsEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewUserService(db, audit)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	logs, err := audit.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "user.register", logs[0].Action)
	require.Equal(t, user.ID, logs[0].Resource)
	require.NotNil(t, logs[0].UserID)
}
