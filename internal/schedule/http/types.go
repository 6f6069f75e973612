package http

import (
	"context"
	"time"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/realtime"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/reminders"
	"github.com/game-schedule/schedule-backend/internal/schedule/store"
)

// ShareReader serves the read-only share views straight from the gateway so
// viewers never touch the admin's state.
type ShareReader interface {
	LoadProjectByShareID(ctx context.Context, shareID string) *domain.Project
	SubscribeToShare(ctx context.Context, project *domain.Project, cb func(*domain.Project)) *realtime.Subscription
}

type Handler struct {
	store     *store.Store
	shares    ShareReader
	reminders *reminders.Scheduler
	now       func() time.Time
	heartbeat time.Duration
	log       *logging.Logger
}

// New builds the handler. reminders may be nil when the scheduler is off.
func New(st *store.Store, shares ShareReader, rem *reminders.Scheduler) *Handler {
	return &Handler{
		store:     st,
		shares:    shares,
		reminders: rem,
		now:       time.Now,
		heartbeat: 30 * time.Second,
		log:       logging.New("schedule_http"),
	}
}

type createProjectReq struct {
	Name string `json:"name"`
}

// taskForm is the task form as submitted; the deadline is a date or an
// RFC 3339 timestamp.
type taskForm struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Deadline    string          `json:"deadline"`
	Priority    domain.Priority `json:"priority"`
	Category    domain.Category `json:"category"`
	Notes       string          `json:"notes"`
	ImageURL    string          `json:"imageUrl"`
}

type progressReq struct {
	Progress *int `json:"progress"`
}

type statusReq struct {
	Status domain.Status `json:"status"`
}

type viewReq struct {
	View domain.ViewType `json:"view"`
}

type themeReq struct {
	Theme domain.Theme `json:"theme"`
}

type adminModeReq struct {
	Enabled bool `json:"enabled"`
}
