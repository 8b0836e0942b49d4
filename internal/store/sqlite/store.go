// Package sqlite stores pending occurrences in an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cronhelper/internal/host"
	platformsqlite "cronhelper/internal/platform/sqlite"
	"cronhelper/internal/shared"
)

//go:embed migrations/*.sql
var migrations embed.FS

const selectColumns = `SELECT id, hook, args_key, args, next_run, schedule, interval_seconds FROM cron_events`

// Store is a host.Store backed by SQLite. Timestamps are kept as unix seconds.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ host.Store      = (*Store)(nil)
	_ host.Maintainer = (*Store)(nil)
)

// Open opens the database at path (platformsqlite.MemoryPath for an
// in-memory one) and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	if path == platformsqlite.MemoryPath {
		db, err = platformsqlite.NewInMemoryDB(ctx)
	} else {
		db, err = platformsqlite.NewDB(ctx, path)
	}
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}

	s, err := New(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New applies the schema to db and wraps it.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "driver", "sqlite")

	info, err := platformsqlite.ApplyMigrationsFromFS(db, migrations, "migrations")
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("migrate: %w", err), shared.KindDependencyFailure)
	}
	if info.Applied {
		logger.Info("schema migrated", "from", info.CurrentVersion, "to", info.FinalVersion)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return platformsqlite.Classify(s.db.PingContext(ctx))
}

// Pending implements host.Store.
func (s *Store) Pending(ctx context.Context, hook, key string) (host.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE hook = ? AND args_key = ?`, hook, key)
	ev, err := scanEvent(row)
	if err != nil {
		return host.Event{}, fmt.Errorf("pending %s: %w", hook, platformsqlite.Classify(err))
	}
	return ev, nil
}

// Insert implements host.Store.
func (s *Store) Insert(ctx context.Context, ev host.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cron_events (id, hook, args_key, args, next_run, schedule, interval_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Hook, ev.Key, string(ev.Args), ev.Timestamp.Unix(), ev.Schedule, ev.Interval, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", ev.Hook, platformsqlite.Classify(err))
	}
	return nil
}

// Due implements host.Store.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]host.Event, error) {
	if limit <= 0 {
		limit = -1 // без ограничения
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE next_run <= ? ORDER BY next_run, hook LIMIT ?`, now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("due: %w", platformsqlite.Classify(err))
	}
	return collect(rows)
}

// Reschedule implements host.Store.
func (s *Store) Reschedule(ctx context.Context, id string, next time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cron_events SET next_run = ? WHERE id = ?`, next.Unix(), id)
	return affected(res, err, "reschedule", id)
}

// Delete implements host.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cron_events WHERE id = ?`, id)
	return affected(res, err, "delete", id)
}

// List implements host.Store.
func (s *Store) List(ctx context.Context) ([]host.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY next_run, hook`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", platformsqlite.Classify(err))
	}
	return collect(rows)
}

// Maintain compacts the database file.
func (s *Store) Maintain(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", platformsqlite.Classify(err))
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("optimize: %w", platformsqlite.Classify(err))
	}
	s.logger.Info("database maintained", "duration", time.Since(start))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (host.Event, error) {
	var (
		ev   host.Event
		args string
		next int64
	)
	if err := row.Scan(&ev.ID, &ev.Hook, &ev.Key, &args, &next, &ev.Schedule, &ev.Interval); err != nil {
		return host.Event{}, err
	}
	ev.Args = json.RawMessage(args)
	ev.Timestamp = time.Unix(next, 0).UTC()
	return ev, nil
}

func collect(rows *sql.Rows) ([]host.Event, error) {
	defer rows.Close()

	var events []host.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, platformsqlite.Classify(err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, platformsqlite.Classify(err)
	}
	return events, nil
}

func affected(res sql.Result, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, platformsqlite.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, platformsqlite.Classify(err))
	}
	if n == 0 {
		return fmt.Errorf("%w: event id %s", shared.ErrNotFound, id)
	}
	return nil
}
