package users

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService signs and verifies the compact token representations. The
// signing secret is injected once at construction and treated as immutable
// for the process lifetime.
type TokenService interface {
	SignAccess(claims *AccessClaims) (string, error)
	SignRefresh(claims *RefreshClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	ValidateRefresh(tokenString string) (*RefreshClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		logger:     logger,
	}
}

// SignAccess signs access claims using the configured signing key.
func (ts *TokenServiceImpl) SignAccess(claims *AccessClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	return ts.sign(claims)
}

// SignRefresh signs refresh claims using the configured signing key.
func (ts *TokenServiceImpl) SignRefresh(claims *RefreshClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	return ts.sign(claims)
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates an access token, returning structured
// claims. The signature is checked before any claim field is trusted.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parse(tokenString, claims); err != nil {
		return nil, err
	}

	// A refresh token parses cleanly as AccessClaims; the type marker is
	// what keeps it out of the request path.
	if claims.TokenType != "" {
		ts.logger.Error("TokenService validate rejected non-access token", "type", claims.TokenType)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ValidateRefresh parses and validates a refresh token.
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.TokenType != RefreshTokenType {
		ts.logger.Error("TokenService validate rejected non-refresh token", "type", claims.TokenType)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}
