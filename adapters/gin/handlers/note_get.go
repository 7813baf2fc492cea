package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/notes"
)

func HandleNoteGET(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		id, err := uuid.Parse(c.Param("note_id"))
		if err != nil {
			authgin.BadRequest(c, "invalid note id")
			return
		}
		n, err := store.Get(c.Request.Context(), u.KeycloakID, id)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, n)
		case errors.Is(err, notes.ErrNotFound):
			authgin.NotFound(c, "note not found")
		default:
			authgin.ServerErr(c, "failed to fetch note")
		}
	}
}
