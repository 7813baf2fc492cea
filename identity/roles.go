package identity

// Role is one of the closed set of realm roles. Checks are exact
// set-membership; admin does not imply user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether the name belongs to the closed role set.
func ValidRole(name string) bool {
	switch Role(name) {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// HasRole reports exact membership of role in roles.
func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
