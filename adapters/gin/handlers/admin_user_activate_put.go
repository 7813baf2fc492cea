package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/users"
)

func HandleAdminUserActivatePUT(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			authgin.BadRequest(c, "invalid user id")
			return
		}
		u, err := svc.Activate(c.Request.Context(), id)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "user " + u.Username + " has been activated"})
		case errors.Is(err, identity.ErrUserNotFound):
			authgin.NotFound(c, "user not found")
		default:
			authgin.ServerErr(c, "failed to activate user")
		}
	}
}
