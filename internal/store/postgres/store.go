// Package postgres stores pending occurrences in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cronhelper/internal/host"
	"cronhelper/internal/platform/pg"
	"cronhelper/internal/shared"
)

//go:embed migrations/*.sql
var migrations embed.FS

const selectColumns = `SELECT id::text, hook, args_key, args, next_run, schedule, interval_seconds FROM cron_events`

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// Store is a host.Store backed by PostgreSQL.
type Store struct {
	db     Querier
	logger *slog.Logger
}

var (
	_ host.Store      = (*Store)(nil)
	_ host.Maintainer = (*Store)(nil)
)

// Migrate applies the embedded schema to the database at dsn.
func Migrate(dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := pg.ApplyMigrationsFromFS(dsn, migrations, "migrations")
	if err != nil {
		return shared.MarkKind(fmt.Errorf("migrate: %w", err), shared.KindDependencyFailure)
	}
	if info.Applied {
		logger.Info("schema migrated", "driver", "postgres", "from", info.CurrentVersion, "to", info.FinalVersion)
	}
	return nil
}

// New wraps db. The schema must already exist, see Migrate.
func New(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "store", "driver", "postgres")}
}

// Pending implements host.Store.
func (s *Store) Pending(ctx context.Context, hook, key string) (host.Event, error) {
	row := s.db.QueryRow(ctx, selectColumns+` WHERE hook = $1 AND args_key = $2`, hook, key)
	ev, err := scanEvent(row)
	if err != nil {
		return host.Event{}, fmt.Errorf("pending %s: %w", hook, pg.Classify(err))
	}
	return ev, nil
}

// Insert implements host.Store. The unique (hook, args_key) constraint makes
// a concurrent duplicate a no-op reported as shared.ErrConflict.
func (s *Store) Insert(ctx context.Context, ev host.Event) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO cron_events (id, hook, args_key, args, next_run, schedule, interval_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hook, args_key) DO NOTHING`,
		ev.ID, ev.Hook, ev.Key, []byte(ev.Args), ev.Timestamp.UTC(), ev.Schedule, ev.Interval,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", ev.Hook, pg.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %s already pending", shared.ErrConflict, ev.Hook)
	}
	return nil
}

// Due implements host.Store.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]host.Event, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.db.Query(ctx,
		selectColumns+` WHERE next_run <= $1 ORDER BY next_run, hook LIMIT $2`, now.UTC(), lim)
	if err != nil {
		return nil, fmt.Errorf("due: %w", pg.Classify(err))
	}
	return collect(rows)
}

// Reschedule implements host.Store.
func (s *Store) Reschedule(ctx context.Context, id string, next time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE cron_events SET next_run = $1 WHERE id = $2`, next.UTC(), id)
	return affected(tag, err, "reschedule", id)
}

// Delete implements host.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM cron_events WHERE id = $1`, id)
	return affected(tag, err, "delete", id)
}

// List implements host.Store.
func (s *Store) List(ctx context.Context) ([]host.Event, error) {
	rows, err := s.db.Query(ctx, selectColumns+` ORDER BY next_run, hook`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", pg.Classify(err))
	}
	return collect(rows)
}

// Maintain reclaims dead rows left by reschedules and refreshes statistics.
func (s *Store) Maintain(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.Exec(ctx, `VACUUM ANALYZE cron_events`); err != nil {
		return fmt.Errorf("vacuum: %w", pg.Classify(err))
	}
	s.logger.Info("database maintained", "duration", time.Since(start))
	return nil
}

func scanEvent(row pgx.Row) (host.Event, error) {
	var (
		ev   host.Event
		args []byte
		next time.Time
	)
	if err := row.Scan(&ev.ID, &ev.Hook, &ev.Key, &args, &next, &ev.Schedule, &ev.Interval); err != nil {
		return host.Event{}, err
	}
	ev.Args = json.RawMessage(args)
	ev.Timestamp = next.UTC()
	return ev, nil
}

func collect(rows pgx.Rows) ([]host.Event, error) {
	defer rows.Close()

	var events []host.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, pg.Classify(err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, pg.Classify(err)
	}
	return events, nil
}

func affected(tag pgconn.CommandTag, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, pg.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event id %s", shared.ErrNotFound, id)
	}
	return nil
}
