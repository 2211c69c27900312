package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	users "github.com/goliatone/go-users"
)

func newTestAuthenticator(t *testing.T, repo *stubUsers, cfg stubConfig) (*users.Auther, users.TokenService) {
	t.Helper()

	if cfg.signingKey == "" {
		cfg.signingKey = "test-signing-key"
	}

	tokens := users.NewTokenService([]byte(cfg.signingKey), nil)
	auther := users.NewAuthenticator(stubRepo{users: repo}, tokens, cfg)

	return auther, tokens
}

func seedUser(t *testing.T, email, password string, role users.UserRole) *users.User {
	t.Helper()

	hash, err := users.HashPassword(password)
	require.NoError(t, err)

	return &users.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user with the default role", func(t *testing.T) {
		repo := newStubUsers()
		auther, _ := newTestAuthenticator(t, repo, stubConfig{})

		created, err := auther.Signup(ctx, "Ada Lovelace", "ada@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.Equal(t, "Ada Lovelace", created.Name)
		assert.Equal(t, "ada@example.com", created.Email)
		assert.Equal(t, users.RoleUser, created.Role)
		assert.EqualValues(t, 0, created.TokenVersion)

		// The stored credential is a hash that verifies the plaintext.
		assert.NotEqual(t, "password123", created.PasswordHash)
		assert.NoError(t, users.ComparePasswordAndHash("password123", created.PasswordHash))
	})

	t.Run("grants admin to the bootstrap email", func(t *testing.T) {
		repo := newStubUsers()
		auther, _ := newTestAuthenticator(t, repo, stubConfig{
			bootstrapAdminEmail: "root@example.com",
		})

		created, err := auther.Signup(ctx, "Root", "root@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, users.RoleAdmin, created.Role)

		regular, err := auther.Signup(ctx, "Someone", "someone@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, users.RoleUser, regular.Role)
	})

	t.Run("rejects an already registered email", func(t *testing.T) {
		existing := seedUser(t, "taken@example.com", "password123", users.RoleUser)
		repo := newStubUsers(existing)
		auther, _ := newTestAuthenticator(t, repo, stubConfig{})

		created, err := auther.Signup(ctx, "Late Comer", "taken@example.com", "different-pass")
		assert.Nil(t, created)
		assert.ErrorIs(t, err, users.ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	user := seedUser(t, "ada@example.com", "password123", users.RoleUser)
	repo := newStubUsers(user)
	auther, tokens := newTestAuthenticator(t, repo, stubConfig{})

	t.Run("issues a token pair on valid credentials", func(t *testing.T) {
		got, pair, err := auther.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		claims, err := tokens.Validate(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject())
		assert.Equal(t, user.Email, claims.Email())
		assert.Equal(t, user.Role, claims.Role())
		assert.Equal(t, user.TokenVersion, claims.TokenVersion())

		refresh, err := tokens.ValidateRefresh(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), refresh.Subject())
		assert.Equal(t, user.TokenVersion, refresh.Version)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := auther.Login(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := auther.Login(ctx, "ada@example.com", "not-the-password")
		assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	})

	t.Run("corrupt stored hash", func(t *testing.T) {
		broken := &users.User{
			ID:           uuid.New(),
			Email:        "broken@example.com",
			PasswordHash: "not-a-bcrypt-hash",
		}
		repo := newStubUsers(broken)
		auther, _ := newTestAuthenticator(t, repo, stubConfig{})

		_, _, err := auther.Login(ctx, "broken@example.com", "whatever123")
		assert.ErrorIs(t, err, users.ErrCorruptCredential)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	user := seedUser(t, "ada@example.com", "password123", users.RoleUser)
	repo := newStubUsers(user)
	auther, tokens := newTestAuthenticator(t, repo, stubConfig{})

	_, pair, err := auther.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	t.Run("mints a new access token", func(t *testing.T) {
		accessToken, err := auther.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, accessToken)

		claims, err := tokens.Validate(accessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject())
		assert.Equal(t, user.TokenVersion, claims.TokenVersion())
	})

	t.Run("rejects an access token on the refresh path", func(t *testing.T) {
		_, err := auther.Refresh(ctx, pair.AccessToken)
		assert.True(t, users.IsMalformedError(err), "expected malformed token error, got: %v", err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := auther.Refresh(ctx, "not.a.token")
		assert.Error(t, err)
	})

	t.Run("stale version snapshot", func(t *testing.T) {
		_, err := auther.Revoke(ctx, user.ID)
		require.NoError(t, err)

		_, err = auther.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, users.ErrTokenRevoked)
	})

	t.Run("deleted account", func(t *testing.T) {
		gone := seedUser(t, "gone@example.com", "password123", users.RoleUser)
		repo := newStubUsers(gone)
		auther, _ := newTestAuthenticator(t, repo, stubConfig{})

		_, pair, err := auther.Login(ctx, "gone@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, gone.ID))

		_, err = auther.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, users.ErrTokenRevoked)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	user := seedUser(t, "ada@example.com", "password123", users.RoleUser)
	repo := newStubUsers(user)
	auther, tokens := newTestAuthenticator(t, repo, stubConfig{})

	_, pair, err := auther.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	version, err := auther.Revoke(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	// The version strictly increases on every call.
	version, err = auther.Revoke(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	// Outstanding tokens still parse; they die at the middleware's version
	// check, not at signature validation.
	claims, err := tokens.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, user.TokenVersion, claims.TokenVersion())

	t.Run("unknown user", func(t *testing.T) {
		_, err := auther.Revoke(ctx, uuid.New())
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})
}

func TestTokenIssuerTTLs(t *testing.T) {
	tokens := users.NewTokenService([]byte("test-signing-key"), nil)
	issuer := users.NewTokenIssuer(tokens)

	now := time.Now()
	user := &users.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		Role:         users.RoleAdmin,
		TokenVersion: 3,
	}

	pair, err := issuer.Issue(user, now)
	require.NoError(t, err)

	access, err := tokens.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(users.AccessTokenTTL), access.Expires(), time.Second)
	assert.EqualValues(t, 3, access.TokenVersion())
	assert.True(t, access.IsAdmin())

	refresh, err := tokens.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(users.RefreshTokenTTL), refresh.Expires(), time.Second)
	assert.EqualValues(t, 3, refresh.Version)

	t.Run("nil user", func(t *testing.T) {
		_, err := issuer.Issue(nil, now)
		assert.Error(t, err)
	})

	t.Run("nil token service", func(t *testing.T) {
		assert.Panics(t, func() {
			users.NewTokenIssuer(nil)
		})
	})
}
