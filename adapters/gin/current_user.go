package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/streamtrack/streamtrack/identity"
)

// UserView is a unified snapshot of the caller for handlers that only need
// to render who is asking, regardless of which middleware populated it.
type UserView struct {
	// Identity
	ID         string  `json:"id"`
	KeycloakID string  `json:"keycloak_id"`
	Username   string  `json:"username"`
	Email      *string `json:"email,omitempty"`

	// Access
	Roles  []identity.Role `json:"roles,omitempty"`
	Active bool            `json:"is_active"`

	// Meta
	Source string `json:"source"` // "store" | "claims" | "none"
}

// CurrentUser returns a unified user snapshot. Order of precedence:
//  1. Resolved local user (from AuthRequired) -> Source: "store"
//  2. Verified claims only -> Source: "claims"
//  3. None (unauthenticated) -> Source: "none"
func CurrentUser(c *gin.Context) (UserView, bool) {
	if u, ok := UserFrom(c); ok {
		return UserView{
			ID:         u.ID.String(),
			KeycloakID: u.KeycloakID,
			Username:   u.Username,
			Email:      u.Email,
			Roles:      u.Roles,
			Active:     u.Active,
			Source:     "store",
		}, true
	}

	if cl, ok := ClaimsFrom(c); ok && cl.Subject != "" {
		roles := make([]identity.Role, 0, len(cl.Roles))
		for _, r := range cl.Roles {
			roles = append(roles, identity.Role(r))
		}
		var email *string
		if cl.Email != "" {
			e := cl.Email
			email = &e
		}
		return UserView{
			KeycloakID: cl.Subject,
			Username:   cl.PreferredUsername,
			Email:      email,
			Roles:      roles,
			Active:     true,
			Source:     "claims",
		}, true
	}

	return UserView{Source: "none"}, false
}
