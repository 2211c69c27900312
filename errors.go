package users

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes give API clients a stable, machine readable discriminator.
const (
	TextCodeEmailTaken        = "EMAIL_TAKEN"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeCorruptCredential = "CORRUPT_CREDENTIAL"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenRevoked      = "TOKEN_REVOKED"
	TextCodeTokenMissing      = "TOKEN_MISSING"
	TextCodeAdminRequired     = "ADMIN_REQUIRED"
	TextCodeEmptyUpdate       = "EMPTY_UPDATE"
)

// ErrEmailTaken is returned when signup hits an already registered email.
var ErrEmailTaken = errors.New("a user with this email already exists", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrUserNotFound is returned for lookups that matched no user record.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrInvalidCredentials is returned when a password fails verification.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrCorruptCredential signals a stored hash that bcrypt cannot parse. This
// is an operator problem, never a client one.
var ErrCorruptCredential = errors.New("stored credential is malformed", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeCorruptCredential)

// ErrTokenExpired is returned for tokens past their exp claim.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that fail signature or
// structural validation.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenRevoked is returned when a token's version snapshot no longer
// matches the user's current token_version.
var ErrTokenRevoked = errors.New("authentication token has been revoked", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenRevoked)

// ErrMissingToken is returned when the request carries no bearer token.
var ErrMissingToken = errors.New("missing authentication token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMissing)

// ErrAdminRequired is returned by the role gate for non-admin claims.
var ErrAdminRequired = errors.New("access denied: admin privileges required", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeAdminRequired)

// ErrEmptyUpdate rejects update payloads that carry no fields.
var ErrEmptyUpdate = errors.New("no valid update data provided", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyUpdate)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
