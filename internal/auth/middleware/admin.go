package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/auth"
)

// CtxAdmin is set on requests that passed RequireAdmin.
const CtxAdmin = "admin"

// RequireAdmin rejects requests without a live admin session.
func RequireAdmin(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.IsAuthenticated(c.Request.Context()) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "admin session required"})
			c.Abort()
			return
		}
		c.Set(CtxAdmin, true)
		c.Next()
	}
}
