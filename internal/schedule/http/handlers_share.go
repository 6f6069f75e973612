package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/store"
)

// GetShared resolves a share link. Unknown ids are a 404, never a 500.
func (h *Handler) GetShared(c *gin.Context) {
	p := h.shares.LoadProjectByShareID(c.Request.Context(), c.Param("share_id"))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// ShareEvents streams the shared project as server-sent events: the current
// version first, then every refresh pushed by the change feed.
func (h *Handler) ShareEvents(c *gin.Context) {
	ctx := c.Request.Context()
	p := h.shares.LoadProjectByShareID(ctx, c.Param("share_id"))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}

	updates := make(chan *domain.Project, 4)
	sub := h.shares.SubscribeToShare(ctx, p, func(np *domain.Project) {
		select {
		case updates <- np:
		default:
		}
	})
	if sub != nil {
		defer sub.Cancel()
	}

	stream(c, h.heartbeat, "project", p, updates)
}

// ProjectEvents streams store snapshots to the admin UI.
func (h *Handler) ProjectEvents(c *gin.Context) {
	updates := make(chan store.State, 8)
	stop := h.store.Observe(func(st store.State) {
		select {
		case updates <- st:
		default:
		}
	})
	defer stop()

	stream(c, h.heartbeat, "state", h.store.Snapshot(), updates)
}

// stream writes first and then every value from updates as SSE events until
// the client goes away, with a heartbeat to keep proxies from timing out.
func stream[T any](c *gin.Context, heartbeat time.Duration, event string, first T, updates <-chan T) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	send := func(name string, v interface{}) {
		c.SSEvent(name, v)
		c.Writer.Flush()
	}
	send(event, first)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			send(event, v)
		case <-ticker.C:
			send("ping", "")
		}
	}
}
