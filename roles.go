package users

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// RequireAdmin is the role gate for privileged operations. It is pure and
// synchronous; every admin-only handler calls it before touching the store.
func RequireAdmin(claims AuthClaims) error {
	if claims == nil || claims.Role() != RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
