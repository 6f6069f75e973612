package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Mode      string    `json:"mode"`
	DB        string    `json:"db"`
	Redis     string    `json:"redis"`
}

// RemoteBackend is the part of the gateway the health check looks at.
type RemoteBackend interface {
	Mode() string
	RemoteConfigured() bool
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	remote      RemoteBackend
	redis       *redis.Client
}

// NewHealthHandler builds the handler; redisClient may be nil.
func NewHealthHandler(serviceName, version string, remote RemoteBackend, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		remote:      remote,
		redis:       redisClient,
	}
}

// HealthCheck always answers 200: a downed remote only degrades durability.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	dbStatus := "disabled"
	if h.remote.RemoteConfigured() {
		if err := h.remote.Ping(pingCtx); err != nil {
			dbStatus = "down"
		} else {
			dbStatus = "up"
		}
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(pingCtx).Err(); err != nil {
			redisStatus = "down"
		} else {
			redisStatus = "up"
		}
	}

	status := "healthy"
	if dbStatus == "down" || redisStatus == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Mode:      h.remote.Mode(),
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
