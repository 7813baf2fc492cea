package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/users"
)

type profileUpdateRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
}

func HandleProfilePUT(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.UserFrom(c)
		if !ok {
			authgin.Unauthenticated(c, "missing token")
			return
		}
		var req profileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			authgin.BadRequest(c, "invalid profile payload")
			return
		}
		updated, err := svc.UpdateProfile(c.Request.Context(), u.KeycloakID, identity.ProfileUpdate{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			AvatarURL: req.AvatarURL,
		})
		switch {
		case err == nil:
			c.JSON(http.StatusOK, updated)
		case errors.Is(err, identity.ErrUserNotFound):
			authgin.NotFound(c, "user not found")
		case errors.Is(err, keycloak.ErrUnavailable):
			authgin.Unavailable(c, "identity provider unreachable")
		default:
			authgin.ServerErr(c, "profile update failed")
		}
	}
}
