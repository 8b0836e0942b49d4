package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cronhelper/internal/shared"
)

// PoolSettings - итоговые параметры пула после применения опций.
type PoolSettings struct {
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	// PingTimeout ограничивает первую проверку соединения.
	PingTimeout time.Duration
	// AppName попадает в pg_stat_activity.application_name.
	AppName string
}

// PoolOption изменяет PoolSettings.
type PoolOption func(*PoolSettings)

// WithMaxConns задает размер пула. MinConns уменьшается до него при необходимости.
func WithMaxConns(n int32) PoolOption {
	return func(s *PoolSettings) { s.MaxConns = n }
}

// WithMinConns задает число соединений, которые пул держит открытыми.
func WithMinConns(n int32) PoolOption {
	return func(s *PoolSettings) { s.MinConns = n }
}

// WithPingTimeout задает таймаут проверки соединения при создании пула.
func WithPingTimeout(d time.Duration) PoolOption {
	return func(s *PoolSettings) { s.PingTimeout = d }
}

// WithAppName задает application_name сессий.
func WithAppName(name string) PoolOption {
	return func(s *PoolSettings) { s.AppName = name }
}

// defaultPoolSettings: диспетчер делает несколько коротких запросов за тик.
func defaultPoolSettings() PoolSettings {
	return PoolSettings{
		MaxConns:          4,
		MinConns:          1,
		HealthCheckPeriod: 30 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		PingTimeout:       5 * time.Second,
		AppName:           "cronhost",
	}
}

// ResolvePoolSettings применяет опции к настройкам по умолчанию и проверяет результат.
func ResolvePoolSettings(opts ...PoolOption) (PoolSettings, error) {
	s := defaultPoolSettings()
	for _, opt := range opts {
		opt(&s)
	}

	if s.MaxConns < 1 {
		return PoolSettings{}, shared.Validationf("pool: max conns must be at least 1, got %d", s.MaxConns)
	}
	if s.MinConns < 0 {
		return PoolSettings{}, shared.Validationf("pool: min conns must not be negative, got %d", s.MinConns)
	}
	if s.PingTimeout <= 0 {
		return PoolSettings{}, shared.Validationf("pool: ping timeout must be positive, got %v", s.PingTimeout)
	}
	s.MinConns = min(s.MinConns, s.MaxConns)
	return s, nil
}

// NewPool создает пул pgx и проверяет соединение. Ошибки подключения
// помечаются как DependencyFailure, неверные настройки и DSN - как Validation.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*pgxpool.Pool, error) {
	s, err := ResolvePoolSettings(opts...)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindValidation)
	}
	cfg.MaxConns = s.MaxConns
	cfg.MinConns = s.MinConns
	cfg.HealthCheckPeriod = s.HealthCheckPeriod
	cfg.MaxConnLifetime = s.MaxConnLifetime
	cfg.MaxConnIdleTime = s.MaxConnIdleTime
	if s.AppName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = s.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, Classify(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}

	return pool, nil
}
