package http

import "github.com/gin-gonic/gin"

// Register mounts the share views on public and everything else on admin,
// which the caller guards.
func (h *Handler) Register(public, admin *gin.RouterGroup) {
	public.GET("/share/:share_id", h.GetShared)
	public.GET("/share/:share_id/events", h.ShareEvents)

	admin.GET("/project", h.GetState)
	admin.POST("/project", h.CreateProject)
	admin.PATCH("/project", h.UpdateProject)
	admin.DELETE("/project", h.ClearAll)
	admin.POST("/project/load", h.LoadFromDatabase)
	admin.POST("/project/migrate", h.Migrate)
	admin.POST("/project/share-id", h.GenerateShareID)
	admin.GET("/project/export", h.Export)
	admin.POST("/project/import", h.Import)
	admin.GET("/project/events", h.ProjectEvents)
	admin.POST("/project/subscription", h.Subscribe)
	admin.DELETE("/project/subscription", h.Unsubscribe)

	admin.POST("/project/tasks", h.AddTask)
	admin.PATCH("/project/tasks/:task_id", h.UpdateTask)
	admin.DELETE("/project/tasks/:task_id", h.DeleteTask)
	admin.PUT("/project/tasks/:task_id/progress", h.UpdateTaskProgress)
	admin.PUT("/project/tasks/:task_id/status", h.UpdateTaskStatus)

	admin.PUT("/settings/view", h.SetView)
	admin.PUT("/settings/theme", h.SetTheme)
	admin.PUT("/settings/notifications", h.SetNotifications)
	admin.PUT("/settings/admin-mode", h.SetAdminMode)

	admin.GET("/reminders", h.Reminders)
}
