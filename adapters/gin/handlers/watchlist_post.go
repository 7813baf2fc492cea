package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/watchlist"
)

type watchlistAddRequest struct {
	MovieID   string  `json:"movie_id" binding:"required"`
	MediaType string  `json:"media_type"`
	Title     string  `json:"title"`
	PosterURL *string `json:"poster_url"`
}

func HandleWatchlistPOST(store *watchlist.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		var req watchlistAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			authgin.BadRequest(c, "invalid watchlist payload")
			return
		}
		if req.MediaType == "" {
			req.MediaType = "movie"
		}
		it, err := store.Add(c.Request.Context(), u.KeycloakID, req.MovieID, req.MediaType, req.Title, req.PosterURL)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, it)
		case errors.Is(err, watchlist.ErrDuplicate):
			authgin.Conflict(c, "item already in watchlist")
		default:
			authgin.ServerErr(c, "failed to add item to watchlist")
		}
	}
}
