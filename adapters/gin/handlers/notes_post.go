package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/notes"
)

type noteCreateRequest struct {
	MovieID string `json:"movie_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func HandleNotesPOST(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		var req noteCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			authgin.BadRequest(c, "invalid note payload")
			return
		}
		n, err := store.Create(c.Request.Context(), u.KeycloakID, req.MovieID, req.Content)
		if err != nil {
			authgin.ServerErr(c, "failed to create note")
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}
