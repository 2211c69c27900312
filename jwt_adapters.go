package users

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/goliatone/go-users/middleware/jwtware"
)

// tokenValidatorAdapter plugs the signing service into the middleware's
// validator contract.
type tokenValidatorAdapter struct {
	tokens TokenService
}

func (a tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// versionCheckerAdapter resolves the live token version for a subject. A
// subject that no longer has a record counts as revoked, not missing.
type versionCheckerAdapter struct {
	users Users
}

func (a versionCheckerAdapter) CurrentTokenVersion(ctx context.Context, subject string) (int64, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return 0, ErrTokenMalformed
	}

	version, err := a.users.CurrentTokenVersion(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, ErrTokenRevoked
		}
		return 0, err
	}

	return version, nil
}
