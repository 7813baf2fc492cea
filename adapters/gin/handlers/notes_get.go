package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/notes"
)

func HandleNotesGET(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		list, err := store.ListByUser(c.Request.Context(), u.KeycloakID)
		if err != nil {
			authgin.ServerErr(c, "failed to fetch notes")
			return
		}
		if list == nil {
			list = []*notes.Note{}
		}
		c.JSON(http.StatusOK, list)
	}
}
