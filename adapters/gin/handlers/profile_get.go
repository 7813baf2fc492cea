package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
)

// HandleProfileGET returns the caller's local record. First-seen identities
// were already lazily provisioned by the auth middleware.
func HandleProfileGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		c.JSON(http.StatusOK, u)
	}
}
