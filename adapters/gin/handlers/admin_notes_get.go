package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/notes"
)

func HandleAdminNotesGET(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.ListAll(c.Request.Context())
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
