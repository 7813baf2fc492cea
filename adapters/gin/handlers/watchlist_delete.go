package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/watchlist"
)

func HandleWatchlistDELETE(store *watchlist.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		movieID := c.Param("movie_id")
		err := store.Remove(c.Request.Context(), u.KeycloakID, movieID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "item removed from watchlist", "removed_movie_id": movieID})
		case errors.Is(err, watchlist.ErrNotFound):
			authgin.NotFound(c, "item not found in watchlist")
		default:
			authgin.ServerErr(c, "failed to remove item from watchlist")
		}
	}
}
