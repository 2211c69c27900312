// Package users implements a small account-management backend: signup,
// login, profile self-service, and admin user CRUD.
//
// Tokens:
//   - Access tokens are short-lived HS256 JWTs carrying the user's identity,
//     role, and a token_version snapshot. Refresh tokens are longer-lived and
//     carry only the subject and the same version snapshot.
//   - Revocation is implicit: every user row carries a monotonically
//     increasing token_version. RevokeTokens bumps it, and the verifying
//     middleware rejects any token whose snapshot no longer matches. No
//     blacklist storage is involved; invalidation is O(1) per user.
//
// Middleware:
//   - middleware/jwtware validates the bearer token and performs the version
//     check on every request. It cannot be constructed without a
//     VersionChecker, so routes wired through ProtectedRoute cannot skip
//     revocation. Handlers read verified claims with ClaimsFromRouter; there
//     is no other way to obtain an AuthClaims value from a request.
//
// Responses:
//   - Every user record crosses the HTTP boundary through User.Sanitize,
//     which strips the password hash. Error responses are produced by a
//     single translator keyed on go-errors categories.
package users
