package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cronhelper/internal/adapter/httpapi"
	"cronhelper/internal/adapter/scheduler"
	"cronhelper/internal/config"
	"cronhelper/internal/host"
	"cronhelper/internal/platform/logger"
)

const (
	appName         = "cronhost"
	shutdownTimeout = 10 * time.Second
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          appName,
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the tick driver and the HTTP server and blocks until SIGINT or
// SIGTERM.
func (a *App) Run() error {
	defer func() { _ = logger.Close(a.log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting", "store", a.cfg.Store.Driver, "tick", a.cfg.Cron.Tick)

	b, err := openStore(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			a.log.Error("close store", "error", err)
		}
	}()

	h, err := a.buildHost(b.store)
	if err != nil {
		return err
	}

	// первый проход сразу, не дожидаясь тика
	if err := h.Tick(ctx); err != nil {
		a.log.Error("initial tick failed", "error", err)
	}

	sched := scheduler.NewWithContext(ctx, scheduler.Config{Logger: a.log})
	if _, err := sched.AddEvery(a.cfg.Cron.Tick, h.Tick, scheduler.JobOptions{
		Name:          "cron-tick",
		Timeout:       a.cfg.Cron.Tick,
		OverlapPolicy: scheduler.SkipIfRunning,
	}); err != nil {
		return err
	}
	sched.Start()

	if a.cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(h, b.health, a.log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		a.log.Error("http server failed", "error", runErr)
	}
	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown", "error", err)
	}
	if err := sched.StopContext(shutdownCtx); err != nil {
		a.log.Error("scheduler shutdown", "error", err)
	}
	return runErr
}

func (a *App) buildHost(store host.Store) (*host.Host, error) {
	h := host.New(store, host.WithLogger(a.log))
	err := registerTasks(h, store, a.cfg.Env, a.cfg.Store.Driver,
		a.cfg.Cron.HeartbeatInterval, a.cfg.Cron.MaintenanceInterval, a.log)
	if err != nil {
		return nil, err
	}
	return h, nil
}
