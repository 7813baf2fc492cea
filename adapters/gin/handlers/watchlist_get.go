package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/watchlist"
)

func HandleWatchlistGET(store *watchlist.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		items, err := store.ListByUser(c.Request.Context(), u.KeycloakID)
		if err != nil {
			authgin.ServerErr(c, "failed to fetch watchlist")
			return
		}
		if items == nil {
			items = []*watchlist.Item{}
		}
		c.JSON(http.StatusOK, items)
	}
}
