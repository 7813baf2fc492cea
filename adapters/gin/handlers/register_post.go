package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/users"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func HandleRegisterPOST(svc *users.Service, rl authgin.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			authgin.BadRequest(c, "invalid registration payload")
			return
		}
		if !authgin.Allow(c, rl, "register") {
			return
		}
		u, err := svc.Register(c.Request.Context(), users.RegisterInput{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, u)
		case errors.Is(err, users.ErrConflict), errors.Is(err, keycloak.ErrConflict):
			authgin.Conflict(c, "username or email already exists")
		case errors.Is(err, keycloak.ErrUnavailable):
			authgin.Unavailable(c, "identity provider unreachable")
		default:
			authgin.ServerErr(c, "registration failed")
		}
	}
}
