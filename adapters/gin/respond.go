package authgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
)

// Failure responses carry a stable category and a human-readable reason.
// Reasons are category labels only; raw provider errors, tokens, and
// internal URLs never reach clients.

func Unauthenticated(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "reason": reason})
}

func Forbidden(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "reason": reason})
}

func NotFound(c *gin.Context, reason string) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "reason": reason})
}

func Conflict(c *gin.Context, reason string) {
	c.JSON(http.StatusConflict, gin.H{"error": "conflict", "reason": reason})
}

func BadRequest(c *gin.Context, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "reason": reason})
}

func Unavailable(c *gin.Context, reason string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "reason": reason})
}

func ServerErr(c *gin.Context, reason string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "reason": reason})
}

// AbortAuthError maps verification/resolution failures onto the response
// taxonomy and aborts the request chain.
func AbortAuthError(c *gin.Context, err error) {
	var claimErr *keycloak.ClaimError
	switch {
	case errors.Is(err, keycloak.ErrMissingToken):
		Unauthenticated(c, "missing token")
	case errors.Is(err, keycloak.ErrMalformedToken):
		Unauthenticated(c, "malformed token")
	case errors.Is(err, keycloak.ErrSignatureInvalid):
		Unauthenticated(c, "signature invalid")
	case errors.As(err, &claimErr):
		Unauthenticated(c, claimErr.Reason)
	case errors.Is(err, identity.ErrDeactivated):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "reason": "account deactivated"})
	case errors.Is(err, keycloak.ErrVerifierUnavailable), errors.Is(err, identity.ErrStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "reason": "authentication temporarily unavailable"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "reason": "authentication failed"})
	}
}
