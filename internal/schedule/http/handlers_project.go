package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/exchange"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
)

// maxImportBytes caps an uploaded project document.
const maxImportBytes = 4 << 20

func outcomeJSON(out gateway.WriteOutcome) gin.H {
	h := gin.H{"backend": out.Backend}
	if out.RemoteErr != nil {
		h["degraded"] = true
	}
	return h
}

// GetState returns the current store snapshot.
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "state": h.store.Snapshot()})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		badBody(c, "invalid body")
		return
	}

	p, out, err := h.store.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p, "write": outcomeJSON(out)})
}

// UpdateProject applies a project patch; unknown fields are rejected.
func (h *Handler) UpdateProject(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badBody(c, "invalid body")
		return
	}
	patch, err := domain.DecodeProjectPatch(body)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.store.UpdateProject(c.Request.Context(), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": h.store.Snapshot().Project, "write": outcomeJSON(out)})
}

// ClearAll wipes both backends and resets the state.
func (h *Handler) ClearAll(c *gin.Context) {
	out := h.store.ClearAll(c.Request.Context())
	if out.LocalErr != nil {
		writeError(c, out.LocalErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "write": outcomeJSON(out)})
}

func (h *Handler) LoadFromDatabase(c *gin.Context) {
	src := h.store.LoadFromDatabase(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "source": src, "state": h.store.Snapshot()})
}

func (h *Handler) Migrate(c *gin.Context) {
	out := h.store.MigrateFromLocalStorage(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "write": outcomeJSON(out), "state": h.store.Snapshot()})
}

func (h *Handler) GenerateShareID(c *gin.Context) {
	id, out, err := h.store.GenerateShareID(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "share_id": id, "write": outcomeJSON(out)})
}

// Export downloads the stored project (?format=json|yaml).
func (h *Handler) Export(c *gin.Context) {
	f, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := h.store.ExportProject(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := "application/json"
	if f == exchange.FormatYAML {
		contentType = "application/yaml"
	}
	c.Header("Content-Disposition", `attachment; filename="project.`+string(f)+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// Import replaces the project with the uploaded document (?format=json|yaml).
func (h *Handler) Import(c *gin.Context) {
	f, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		badBody(c, "invalid body")
		return
	}

	p, out, err := h.store.ImportProject(c.Request.Context(), data, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p, "write": outcomeJSON(out)})
}

func (h *Handler) Subscribe(c *gin.Context) {
	subscribed := h.store.SubscribeToProject(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "subscribed": subscribed || h.store.Snapshot().Subscribed})
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	h.store.UnsubscribeFromProject()
	c.JSON(http.StatusOK, gin.H{"ok": true, "subscribed": false})
}
