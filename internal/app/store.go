package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cronhelper/internal/adapter/httpapi"
	"cronhelper/internal/config"
	"cronhelper/internal/host"
	"cronhelper/internal/platform/pg"
	"cronhelper/internal/store/memory"
	"cronhelper/internal/store/postgres"
	"cronhelper/internal/store/sqlite"
)

// backend is an opened store plus its health probe and cleanup.
type backend struct {
	store  host.Store
	health httpapi.HealthFunc
	close  func() error
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (backend, error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Warn("using in-memory store, scheduled events are lost on restart")
		return backend{store: memory.New(), close: func() error { return nil }}, nil

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath, log)
		if err != nil {
			return backend{}, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", "path", cfg.Store.SQLitePath)
		return backend{store: s, health: s.Ping, close: s.Close}, nil

	case "postgres":
		return openPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.PGMaxConns, log)

	default:
		return backend{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openPostgres(ctx context.Context, dsn string, maxConns int32, log *slog.Logger) (backend, error) {
	opts := pg.DefaultHealthCheckOptions()
	opts.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("waiting for database", "attempt", attempt, "delay", delay, "error", err, "database_url", dsn)
	}
	if err := pg.WaitForDB(ctx, dsn, opts); err != nil {
		return backend{}, err
	}
	if err := postgres.Migrate(dsn, log); err != nil {
		return backend{}, err
	}

	pool, err := pg.NewPool(ctx, dsn, pg.WithMaxConns(maxConns))
	if err != nil {
		return backend{}, fmt.Errorf("open postgres pool: %w", err)
	}
	log.Info("postgres store opened", "database_url", dsn, "max_conns", maxConns)

	return backend{
		store:  postgres.New(pool, log),
		health: func(ctx context.Context) error { return pg.HealthCheckPool(ctx, pool) },
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}
