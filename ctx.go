package users

import (
	"context"

	"github.com/goliatone/go-router"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// DefaultClaimsContextKey is the router Locals key the middleware stores
// verified claims under.
const DefaultClaimsContextKey = "claims"

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the AuthClaims from the standard context
func ClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// ClaimsFromRouter extracts the AuthClaims the verifying middleware stored
// in the router context. The boolean is false when the route was not wired
// through the middleware; callers must treat that as unauthenticated.
func ClaimsFromRouter(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultClaimsContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}
