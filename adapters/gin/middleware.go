package authgin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
)

const (
	ctxUserKey   = "auth.user"
	ctxClaimsKey = "auth.claims"
)

// AuthAuditor receives successful authentications, best-effort.
type AuthAuditor interface {
	LogAuth(ctx context.Context, subject, username, ip, userAgent string)
}

// AuthRequired gates a route group on a verified bearer token and a resolved,
// active local user. The chain is strictly verify -> resolve -> proceed; any
// failure aborts before business logic runs.
func AuthRequired(verifier *keycloak.Verifier, resolver *identity.Resolver, audit AuthAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifier.VerifyHeader(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			AbortAuthError(c, err)
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			AbortAuthError(c, err)
			return
		}
		c.Set(ctxClaimsKey, claims)
		c.Set(ctxUserKey, user)
		if audit != nil {
			audit.LogAuth(c.Request.Context(), claims.Subject, user.Username, c.ClientIP(), c.Request.UserAgent())
		}
		c.Next()
	}
}

// RequireRole gates a route on exact membership of role in the resolved
// user's role set. Must run after AuthRequired.
func RequireRole(role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFrom(c)
		if !ok {
			Unauthenticated(c, "missing token")
			c.Abort()
			return
		}
		if !u.HasRole(role) {
			Forbidden(c, "insufficient privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFrom returns the resolved local user stashed by AuthRequired.
func UserFrom(c *gin.Context) (*identity.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*identity.User)
	return u, ok
}

// ClaimsFrom returns the verified claim set stashed by AuthRequired.
func ClaimsFrom(c *gin.Context) (*keycloak.ClaimSet, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*keycloak.ClaimSet)
	return cl, ok
}
