package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/users"
)

type roleChangeRequest struct {
	Role string `json:"role" binding:"required"`
}

// HandleAdminPromotePOST promotes a user to admin or demotes back to plain
// user, mirroring the role mapping in Keycloak.
func HandleAdminPromotePOST(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("user_id"))
		if err != nil {
			authgin.BadRequest(c, "invalid user id")
			return
		}
		var req roleChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			authgin.BadRequest(c, "invalid role payload")
			return
		}
		if !identity.ValidRole(req.Role) {
			authgin.BadRequest(c, "unknown role")
			return
		}
		u, err := svc.SetRole(c.Request.Context(), id, identity.Role(req.Role))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, u)
		case errors.Is(err, identity.ErrUserNotFound):
			authgin.NotFound(c, "user not found")
		case errors.Is(err, keycloak.ErrUnavailable):
			authgin.Unavailable(c, "identity provider unreachable")
		default:
			authgin.ServerErr(c, "failed to change user role")
		}
	}
}
