package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/watchlist"
)

func HandleWatchlistCheckGET(store *watchlist.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		exists, err := store.Contains(c.Request.Context(), u.KeycloakID, c.Param("movie_id"))
		if err != nil {
			authgin.ServerErr(c, "failed to check watchlist")
			return
		}
		c.JSON(http.StatusOK, exists)
	}
}
