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

func HandleAdminUserGET(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			authgin.BadRequest(c, "invalid user id")
			return
		}
		u, err := svc.Get(c.Request.Context(), id)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, u)
		case errors.Is(err, identity.ErrUserNotFound):
			authgin.NotFound(c, "user not found")
		default:
			authgin.ServerErr(c, "failed to fetch user")
		}
	}
}
