package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/reminders"
)

func (h *Handler) SetView(c *gin.Context) {
	var req viewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	if err := h.store.SetCurrentView(req.View); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "view": req.View})
}

func (h *Handler) SetTheme(c *gin.Context) {
	var req themeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	if err := h.store.SetTheme(c.Request.Context(), req.Theme); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "theme": req.Theme})
}

func (h *Handler) SetNotifications(c *gin.Context) {
	var req domain.NotificationSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	if err := h.store.SetNotifications(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notifications": req})
}

func (h *Handler) SetAdminMode(c *gin.Context) {
	var req adminModeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	h.store.SetAdminMode(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"ok": true, "admin_mode": req.Enabled})
}

// Reminders lists the reminders due today plus the result of the last
// scheduled run, when the scheduler is running.
func (h *Handler) Reminders(c *gin.Context) {
	st := h.store.Snapshot()
	resp := gin.H{
		"ok":  true,
		"due": nonNil(reminders.Due(st.Project, st.Notifications, h.now())),
	}
	if h.reminders != nil {
		latest, ranAt := h.reminders.Latest()
		resp["last_run"] = gin.H{"reminders": latest, "at": formatRunTime(ranAt)}
	}
	c.JSON(http.StatusOK, resp)
}

func nonNil(rs []reminders.Reminder) []reminders.Reminder {
	if rs == nil {
		return []reminders.Reminder{}
	}
	return rs
}

func formatRunTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
