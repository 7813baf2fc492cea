package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/notes"
)

// HandleAdminNoteAuthorsGET lists the identities that have written notes.
func HandleAdminNoteAuthorsGET(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authors, err := store.DistinctAuthors(c.Request.Context())
		if err != nil {
			authgin.ServerErr(c, "failed to fetch note authors")
			return
		}
		if authors == nil {
			authors = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"users_with_notes_activity": authors})
	}
}
