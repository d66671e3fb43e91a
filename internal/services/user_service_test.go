package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"vhs_converter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	user, err := e.users.Register(ctx, " Jo@Example.com ", "Jo", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", user.Email)
	assert.False(t, user.IsAdmin())
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = e.users.Register(ctx, "jo@example.com", "Jo", "another pass")
	assert.True(t, errors.Is(err, ErrEmailTaken))

	_, err = e.users.Register(ctx, "short@example.com", "S", "abc")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	got, err := e.users.Authenticate(ctx, "JO@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = e.users.Authenticate(ctx, "jo@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = e.users.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestUserService_RegisterNeverGrantsAdmin(t *testing.T) {
	e := newTestEnv()
	user, err := e.users.Register(context.Background(), "ops@vhs.example", "Ops", "password123")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())
	assert.Equal(t, string(models.RoleCustomer), user.Role)
}

func TestUserService_Sessions(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	user, err := e.users.Register(ctx, "jo@example.com", "Jo", "correct horse")
	require.NoError(t, err)

	sessionID, err := e.users.CreateSession(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	got, err := e.users.GetSessionUser(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// role changes apply to live sessions
	e.userRepo.users[user.ID].Role = string(models.RoleAdmin)
	got, err = e.users.GetSessionUser(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	require.NoError(t, e.users.DestroySession(ctx, sessionID))
	_, err = e.users.GetSessionUser(ctx, sessionID)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestUserService_EnsureAdmin(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	admin, err := e.users.EnsureAdmin(ctx, "ops@vhs.example", "seed-password")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	again, err := e.users.EnsureAdmin(ctx, "ops@vhs.example", "ignored-password")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = e.users.Authenticate(ctx, "ops@vhs.example", "seed-password")
	assert.NoError(t, err, "an existing admin keeps its password")
}

func TestUserService_EnsureAdmin_TakesOverSelfRegisteredAccount(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	svc := e.users.(*userService)

	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	squatter, err := e.users.Register(ctx, "boss@vhs.example", "Boss", "squatter-pass")
	require.NoError(t, err)
	require.False(t, squatter.IsAdmin())
	squatterSession, err := e.users.CreateSession(ctx, squatter)
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	admin, err := e.users.EnsureAdmin(ctx, "boss@vhs.example", "operator-pass")
	require.NoError(t, err)
	assert.Equal(t, squatter.ID, admin.ID)
	assert.True(t, admin.IsAdmin())

	_, err = e.users.Authenticate(ctx, "boss@vhs.example", "squatter-pass")
	assert.True(t, errors.Is(err, ErrInvalidCredentials), "old password no longer works")
	_, err = e.users.GetSessionUser(ctx, squatterSession)
	assert.True(t, errors.Is(err, ErrInvalidCredentials), "sessions opened before the reset are void")

	clock = clock.Add(time.Minute)
	user, err := e.users.Authenticate(ctx, "boss@vhs.example", "operator-pass")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	sessionID, err := e.users.CreateSession(ctx, user)
	require.NoError(t, err)
	got, err := e.users.GetSessionUser(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}

func TestUserService_EnsureAdmin_RejectsShortSeedPassword(t *testing.T) {
	e := newTestEnv()
	_, err := e.users.EnsureAdmin(context.Background(), "ops@vhs.example", "short")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
