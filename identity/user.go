package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound means no record matches the lookup key.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrDeactivated means the account exists but has been deactivated.
	// Deactivation is terminal for removal; records are never hard-deleted.
	ErrDeactivated = errors.New("identity: account deactivated")
	// ErrStoreUnavailable wraps persistence-layer failures, as opposed to
	// "not found".
	ErrStoreUnavailable = errors.New("identity: user store unavailable")
)

// User is the local record mirrored from a Keycloak identity.
// KeycloakID is unique and immutable once created; the uuid is a local
// surrogate.
type User struct {
	ID         uuid.UUID  `json:"id"`
	KeycloakID string     `json:"keycloak_id"`
	Username   string     `json:"username"`
	Email      *string    `json:"email"`
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	Roles      []Role     `json:"roles"`
	Active     bool       `json:"is_active"`
	AvatarURL  *string    `json:"avatar_url"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// HasRole reports exact membership on the user's role set.
func (u *User) HasRole(role Role) bool { return HasRole(u.Roles, role) }

// ProfileUpdate carries partial profile fields; nil fields are untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// IsEmpty reports whether the update would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.AvatarURL == nil
}
