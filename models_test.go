package users_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	users "github.com/goliatone/go-users"
)

func TestUserSanitize(t *testing.T) {
	user := &users.User{
		ID:           uuid.New(),
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         users.RoleAdmin,
		TokenVersion: 4,
	}

	public := user.Sanitize()
	require.NotNil(t, public)

	assert.Equal(t, user.ID, public.ID)
	assert.Equal(t, user.Name, public.Name)
	assert.Equal(t, user.Email, public.Email)
	assert.Equal(t, user.Role, public.Role)
	assert.Equal(t, user.TokenVersion, public.TokenVersion)

	// The projection has no credential field at all; the hash cannot make
	// it into a response body even serialized.
	body, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(body), user.PasswordHash)
	assert.NotContains(t, string(body), "password")

	t.Run("nil receiver", func(t *testing.T) {
		var missing *users.User
		assert.Nil(t, missing.Sanitize())
	})
}

func TestUserJSONNeverCarriesHash(t *testing.T) {
	user := &users.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: "super-secret-hash",
	}

	body, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "super-secret-hash")
}

func TestSanitizeAll(t *testing.T) {
	records := []*users.User{
		{ID: uuid.New(), Email: "a@example.com", PasswordHash: "hash-a"},
		{ID: uuid.New(), Email: "b@example.com", PasswordHash: "hash-b"},
	}

	public := users.SanitizeAll(records)
	require.Len(t, public, 2)
	assert.Equal(t, "a@example.com", public[0].Email)
	assert.Equal(t, "b@example.com", public[1].Email)

	assert.Empty(t, users.SanitizeAll(nil))
}

func TestUserPatchIsZero(t *testing.T) {
	assert.True(t, users.UserPatch{}.IsZero())

	name := "Ada"
	assert.False(t, users.UserPatch{Name: &name}.IsZero())

	role := users.RoleAdmin
	assert.False(t, users.UserPatch{Role: &role}.IsZero())
}
