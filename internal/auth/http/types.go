package http

import (
	"time"

	"github.com/game-schedule/schedule-backend/internal/auth"
)

type Handler struct {
	gate *auth.Gate
}

func New(gate *auth.Gate) *Handler {
	return &Handler{gate: gate}
}

type loginRequest struct {
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	OK                bool       `json:"ok"`
	Authenticated     bool       `json:"authenticated"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	HasCustomPassword bool       `json:"has_custom_password"`
}
