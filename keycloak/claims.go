package keycloak

import "time"

// ClaimSet is the strongly-typed result of a successful token verification.
// It is built once by the Verifier after every check has passed; request
// handling never touches the raw claim bag.
type ClaimSet struct {
	Subject           string
	Issuer            string
	Audience          []string
	AuthorizedParty   string
	ExpiresAt         time.Time
	Roles             []string
	PreferredUsername string
	Email             string
}

// HasRole reports exact membership; there is no role hierarchy.
func (c *ClaimSet) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
