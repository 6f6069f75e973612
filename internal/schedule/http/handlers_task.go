package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
)

// AddTask validates the task form and appends the task. The store trusts
// what it is given, so the presence and deadline checks live here.
func (h *Handler) AddTask(c *gin.Context) {
	var req taskForm
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		badBody(c, "title and description are required")
		return
	}
	deadline, err := domain.ParseDeadline(req.Deadline)
	if err != nil {
		writeError(c, err)
		return
	}
	if deadline.Before(startOfDay(h.now())) {
		badBody(c, "deadline must not be in the past")
		return
	}

	task, out, err := h.store.AddTask(c.Request.Context(), domain.TaskFormData{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Deadline:    deadline,
		Priority:    req.Priority,
		Category:    req.Category,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "task": task, "write": outcomeJSON(out)})
}

// UpdateTask applies a task patch. Unknown task ids are accepted as a no-op.
func (h *Handler) UpdateTask(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badBody(c, "invalid body")
		return
	}
	patch, err := domain.DecodeTaskPatch(body)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.store.UpdateTask(c.Request.Context(), c.Param("task_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	h.taskResponse(c, out)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	out, err := h.store.DeleteTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "write": outcomeJSON(out)})
}

func (h *Handler) UpdateTaskProgress(c *gin.Context) {
	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil {
		badBody(c, "progress is required")
		return
	}
	out, err := h.store.UpdateTaskProgress(c.Request.Context(), c.Param("task_id"), *req.Progress)
	if err != nil {
		writeError(c, err)
		return
	}
	h.taskResponse(c, out)
}

func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, "invalid body")
		return
	}
	out, err := h.store.UpdateTaskStatus(c.Request.Context(), c.Param("task_id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	h.taskResponse(c, out)
}

func (h *Handler) taskResponse(c *gin.Context, out gateway.WriteOutcome) {
	p := h.store.Snapshot().Project
	resp := gin.H{"ok": true, "write": outcomeJSON(out)}
	if p != nil {
		if i := p.TaskIndex(c.Param("task_id")); i >= 0 {
			resp["task"] = p.Tasks[i]
		}
	}
	c.JSON(http.StatusOK, resp)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
