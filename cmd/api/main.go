package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/game-schedule/schedule-backend/config"
	"github.com/game-schedule/schedule-backend/internal/auth"
	"github.com/game-schedule/schedule-backend/internal/bootstrap"
	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
	"github.com/game-schedule/schedule-backend/internal/schedule/reminders"
	"github.com/game-schedule/schedule-backend/internal/schedule/store"
)

const serviceName = "schedule-backend"

func main() {
	log := logging.New("main")

	cfg, err := config.Load()
	if err != nil {
		log.LogError("config", err)
		os.Exit(1)
	}
	logging.Configure(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.OpenBackends(ctx, cfg)
	if err != nil {
		log.LogError("open_backends", err)
		os.Exit(1)
	}
	defer backends.Close()

	gw := gateway.New(backends.Cache, backends.Remote(), backends.Feed)
	st := store.New(gw)

	src := st.LoadFromDatabase(ctx)
	log.LogInfof("startup", "mode=%s project_source=%s", gw.Mode(), src)

	rem := reminders.NewScheduler(st, cfg.Reminders.Schedule)
	if err := rem.Start(); err != nil {
		log.LogError("reminders", err)
		os.Exit(1)
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Gateway:     gw,
		Store:       st,
		Gate:        auth.NewGate(backends.Cache),
		Reminders:   rem,
		Redis:       backends.Redis,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.LogInfof("startup", "listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError("listen", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError("shutdown", err)
	}
	rem.Stop(shutdownCtx)
	st.UnsubscribeFromProject()
	log.LogInfo("shutdown", "stopped")
}
