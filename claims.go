package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the verified payload carried by an access token. Values of
// this type only come out of TokenService.Validate (directly or via the
// jwtware middleware); handlers never construct one.
type AuthClaims interface {
	Subject() string
	UserName() string
	Email() string
	Role() UserRole
	TokenVersion() int64
	IsAdmin() bool
	Expires() time.Time
}

// AccessClaims is the concrete access-token claim set. TokenType stays
// empty on access tokens; Validate rejects anything that carries one so a
// refresh token can never authenticate a request.
type AccessClaims struct {
	jwt.RegisteredClaims
	TokenType string   `json:"type,omitempty"`
	Name      string   `json:"name,omitempty"`
	UserEmail string   `json:"email,omitempty"`
	UserRole  UserRole `json:"role,omitempty"`
	Version   int64    `json:"token_version"`
}

// Verify interface compliance
var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim, the user ID
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserName returns the user's display name
func (c *AccessClaims) UserName() string {
	return c.Name
}

// Email returns the user's email
func (c *AccessClaims) Email() string {
	return c.UserEmail
}

// Role returns the global role
func (c *AccessClaims) Role() UserRole {
	return c.UserRole
}

// TokenVersion returns the revocation generation this token was issued
// against.
func (c *AccessClaims) TokenVersion() int64 {
	return c.Version
}

// IsAdmin reports whether the claims carry the admin role
func (c *AccessClaims) IsAdmin() bool {
	return c.UserRole == RoleAdmin
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// RefreshTokenType is the value of the "type" claim on refresh tokens.
const RefreshTokenType = "refresh"

// RefreshClaims is the refresh-token claim set. It deliberately carries no
// identity fields beyond the subject: a refresh token can only mint a new
// access token, never authenticate a request on its own.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
	Version   int64  `json:"ver"`
}

// Subject returns the subject claim, the user ID
func (c *RefreshClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
