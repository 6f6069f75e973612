package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/game-schedule/schedule-backend/internal/api/http"
	apimw "github.com/game-schedule/schedule-backend/internal/api/http/middleware"
	"github.com/game-schedule/schedule-backend/internal/auth"
	authhttp "github.com/game-schedule/schedule-backend/internal/auth/http"
	authmw "github.com/game-schedule/schedule-backend/internal/auth/middleware"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
	schedulehttp "github.com/game-schedule/schedule-backend/internal/schedule/http"
	"github.com/game-schedule/schedule-backend/internal/schedule/reminders"
	"github.com/game-schedule/schedule-backend/internal/schedule/store"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	Gateway   *gateway.Gateway
	Store     *store.Store
	Gate      *auth.Gate
	Reminders *reminders.Scheduler
	Redis     *redis.Client
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", apimw.HeaderRequestID},
		ExposeHeaders:    []string{apimw.HeaderRequestID, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Gateway, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	authhttp.New(dep.Gate).Register(api.Group("/auth"))

	admin := api.Group("")
	admin.Use(authmw.RequireAdmin(dep.Gate))

	scheduleHandler := schedulehttp.New(dep.Store, dep.Gateway, dep.Reminders)
	scheduleHandler.Register(api, admin)

	return r
}
