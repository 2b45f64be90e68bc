package middleware

import (
	"crypto/subtle"
	"net/http"

	"faktura/internal/apierror"

	"github.com/gin-gonic/gin"
)

// CronAuth guards the scheduler trigger endpoint with a shared secret in
// the X-Cron-Token header. Compared in constant time.
func CronAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Cron-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apierror.New(apierror.CodeUnauthorized, "Ungültiges Cron-Token"))
			return
		}
		c.Next()
	}
}
