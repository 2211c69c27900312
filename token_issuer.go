package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	// AccessTokenTTL bounds how long an access token authenticates requests.
	AccessTokenTTL = time.Hour
	// RefreshTokenTTL bounds how long a refresh token can mint new access tokens.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair is the result of a successful issuance.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer builds both claim sets from a user record and a point in
// time, and signs them. It is a pure function of (user, now, secret); no
// I/O happens beyond signing.
type TokenIssuer struct {
	tokens TokenService
}

// NewTokenIssuer returns a TokenIssuer backed by the given codec.
func NewTokenIssuer(tokens TokenService) *TokenIssuer {
	if tokens == nil {
		panic("users: TokenIssuer requires a TokenService")
	}
	return &TokenIssuer{tokens: tokens}
}

// Issue mints the access/refresh pair for user as of now. Both tokens
// snapshot the user's current token version; that snapshot is what makes
// revocation work without a blacklist.
func (ti *TokenIssuer) Issue(user *User, now time.Time) (TokenPair, error) {
	if user == nil {
		return TokenPair{}, errors.New("user is required", errors.CategoryBadInput)
	}

	access := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
		Name:      user.Name,
		UserEmail: user.Email,
		UserRole:  user.Role,
		Version:   user.TokenVersion,
	}

	refresh := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
		},
		TokenType: RefreshTokenType,
		Version:   user.TokenVersion,
	}

	accessToken, err := ti.tokens.SignAccess(access)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := ti.tokens.SignRefresh(refresh)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
