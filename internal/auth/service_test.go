package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:     memory.New(),
		Secret:    "test-secret-at-least-32-bytes-long",
		AccessTTL: 15 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "kasir1", "kasir1@example.com", "Kasir Satu", "hunter2hunter2", domain.RoleStaff)
	require.NoError(t, err)
	require.Equal(t, "kasir1", user.Username)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash, "password must be hashed")

	result, err := svc.Login(ctx, "kasir1", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, user.ID, result.User.ID)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "kasir1", "kasir1@example.com", "", "hunter2hunter2", domain.RoleStaff)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "kasir1", "wrong-password")
	require.Error(t, err)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "kasir1", "a@example.com", "", "hunter2hunter2", domain.RoleStaff)
	require.NoError(t, err)
	_, err = svc.Register(ctx, "kasir1", "b@example.com", "", "hunter2hunter2", domain.RoleStaff)
	require.Error(t, err)
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newService(t)
	_, err := svc.Register(context.Background(), "kasir1", "a@example.com", "", "short", domain.RoleStaff)
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "kasir1", "a@example.com", "", "hunter2hunter2", domain.RoleStaff)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	svc.WithNow(func() time.Time { return issued })
	result, err := svc.Login(ctx, "kasir1", "hunter2hunter2")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	svc := newService(t)
	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
}
