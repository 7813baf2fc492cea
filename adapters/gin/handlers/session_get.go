package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
)

// HandleSessionGET returns a compact snapshot of who is calling, for
// frontends that only need identity and role flags.
func HandleSessionGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := authgin.CurrentUser(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
