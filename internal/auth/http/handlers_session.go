package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

// Login starts an admin session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body", "details": err.Error()})
		return
	}

	if err := h.gate.Authenticate(c.Request.Context(), req.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	h.Session(c)
}

// Logout ends the admin session. Logging out without a session is fine.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session reports whether an admin session is live.
func (h *Handler) Session(c *gin.Context) {
	ctx := c.Request.Context()
	resp := sessionResponse{
		OK:                true,
		HasCustomPassword: h.gate.HasCustomPassword(ctx),
	}
	if exp, ok := h.gate.ExpiresAt(ctx); ok {
		resp.Authenticated = true
		resp.ExpiresAt = &exp
	}
	c.JSON(http.StatusOK, resp)
}

// SetPassword replaces the admin password. Admin only.
func (h *Handler) SetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "password is required"})
		return
	}
	if err := h.gate.SetPassword(c.Request.Context(), req.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
