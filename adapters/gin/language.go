package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/streamtrack/streamtrack/lang"
)

// Locale resolves the caller's metadata locale and stores it on the request
// context. An explicit language query parameter wins over Accept-Language.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("language")
		if raw == "" {
			raw = c.GetHeader("Accept-Language")
		}
		ctx := lang.WithLocale(c.Request.Context(), lang.Normalize(raw))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
