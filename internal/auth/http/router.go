package http

import (
	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/auth/middleware"
)

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/session", h.Session)
	rg.PUT("/password", middleware.RequireAdmin(h.gate), h.SetPassword)
}
