package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/users"
)

func HandleAdminUsersGET(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			authgin.ServerErr(c, "failed to fetch users")
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
