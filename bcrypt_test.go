package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	users "github.com/goliatone/go-users"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings; we refuse before it does
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := users.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = users.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := users.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Wrong password",
			password: "not-the-password",
			hash:     hash,
			wantErr:  users.ErrInvalidCredentials,
		},
		{
			name:     "Corrupt hash",
			password: password,
			hash:     "definitely-not-bcrypt",
			wantErr:  users.ErrCorruptCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := users.HashPassword("same-password-1")
	assert.NoError(t, err)
	h2, err := users.HashPassword("same-password-1")
	assert.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
