package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/avatars"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/users"
)

func HandleAvatarPOST(svc *users.Service, store *avatars.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			authgin.BadRequest(c, "missing file")
			return
		}
		f, err := fh.Open()
		if err != nil {
			authgin.ServerErr(c, "avatar upload failed")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, 6<<20))
		if err != nil {
			authgin.ServerErr(c, "avatar upload failed")
			return
		}
		url, err := store.Save(data, fh.Header.Get("Content-Type"), fh.Filename)
		switch {
		case errors.Is(err, avatars.ErrNotImage):
			authgin.BadRequest(c, "file must be an image")
			return
		case errors.Is(err, avatars.ErrTooLarge):
			authgin.BadRequest(c, "file exceeds 5MB limit")
			return
		case err != nil:
			authgin.ServerErr(c, "avatar upload failed")
			return
		}
		if _, err := svc.UpdateProfile(c.Request.Context(), u.KeycloakID, identity.ProfileUpdate{AvatarURL: &url}); err != nil {
			authgin.ServerErr(c, "avatar upload failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"avatar_url": url})
	}
}
