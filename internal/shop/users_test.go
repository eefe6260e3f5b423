package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "123456"},
		{name: "blank email", email: "   ", password: "123456"},
		{name: "short password", email: "user@test.com", password: "12345"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, session := newTestSession(t)

			_, err := session.User.Login(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.False(t, session.User.IsAuthenticated())
		})
	}
}

func TestLoginDerivesNameFromEmail(t *testing.T) {
	_, session := newTestSession(t)

	user, err := session.User.Login(context.Background(), "user@test.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Name)
	assert.Equal(t, "user@test.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.Contains(t, user.Avatar, "ui-avatars.com")

	current, ok := session.User.Current()
	require.True(t, ok)
	assert.Equal(t, user, current)
}

func TestRegisterKeepsProvidedName(t *testing.T) {
	_, session := newTestSession(t)

	user, err := session.User.Register(context.Background(), "Jordan Smith", "jordan@example.com", "secr3tpass")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Smith", user.Name)
	assert.True(t, session.User.IsAuthenticated())
}

func TestRegisterRequiresName(t *testing.T) {
	_, session := newTestSession(t)

	_, err := session.User.Register(context.Background(), "  ", "jordan@example.com", "secr3tpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, session.User.IsAuthenticated())
}

func TestLogoutDiscardsIdentity(t *testing.T) {
	_, session := newTestSession(t)
	loginTestUser(t, session)

	require.NoError(t, session.User.Logout(context.Background()))
	assert.False(t, session.User.IsAuthenticated())
	_, ok := session.User.Current()
	assert.False(t, ok)
}

func TestIdentitySurvivesReload(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshots()
	auth := SimulatedAuthenticator{}

	users, err := NewUserStore(ctx, repo, auth, "profile-1")
	require.NoError(t, err)
	user, err := users.Login(ctx, "user@test.com", "123456")
	require.NoError(t, err)

	reloaded, err := NewUserStore(ctx, repo, auth, "profile-1")
	require.NoError(t, err)
	current, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, user, current)
}

func TestLogoutSurvivesReload(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshots()
	auth := SimulatedAuthenticator{}

	users, err := NewUserStore(ctx, repo, auth, "profile-1")
	require.NoError(t, err)
	_, err = users.Login(ctx, "user@test.com", "123456")
	require.NoError(t, err)
	require.NoError(t, users.Logout(ctx))

	reloaded, err := NewUserStore(ctx, repo, auth, "profile-1")
	require.NoError(t, err)
	assert.False(t, reloaded.IsAuthenticated())
}
