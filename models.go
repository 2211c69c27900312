package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role granted on signup
	RoleUser UserRole = "USER"
	// RoleAdmin can manage every account
	RoleAdmin UserRole = "ADMIN"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull,default:'USER'" json:"role,omitempty"`
	TokenVersion  int64      `bun:"token_version,notnull,default:0" json:"token_version"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PublicUser is the external projection of a User. It has no password
// field at all, so a handler cannot leak the hash by accident.
type PublicUser struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         UserRole   `json:"role"`
	TokenVersion int64      `json:"token_version"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Sanitize is the single chokepoint that strips credentials before a user
// record crosses the response boundary.
func (u *User) Sanitize() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// SanitizeAll maps Sanitize over a result set.
func SanitizeAll(records []*User) []*PublicUser {
	out := make([]*PublicUser, 0, len(records))
	for _, r := range records {
		out = append(out, r.Sanitize())
	}
	return out
}

// UserPatch carries the optional fields of an update. Nil means "leave
// unchanged"; an all-nil patch is rejected before it reaches the store.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *UserRole
}

// IsZero reports whether the patch would change nothing.
func (p UserPatch) IsZero() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil
}

// UserPage is one page of a cursor-driven listing. Cursor is the ID of the
// last record; pass it back to continue.
type UserPage struct {
	Users          []*User
	ContinueCursor string
	IsDone         bool
}
