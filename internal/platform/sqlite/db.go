package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite драйвер
)

// MemoryPath открывает in-memory базу.
const MemoryPath = ":memory:"

// Options содержит настройки подключения к SQLite.
type Options struct {
	// MaxOpenConns - максимальное количество открытых соединений
	MaxOpenConns int
	// MaxIdleConns - максимальное количество idle соединений
	MaxIdleConns int
	// ConnMaxLifetime - максимальное время жизни соединения
	ConnMaxLifetime time.Duration
	// PingTimeout - таймаут проверки соединения при открытии
	PingTimeout time.Duration
	// WALMode - включить журнал WAL
	WALMode bool
	// BusyTimeout - сколько ждать при SQLITE_BUSY
	BusyTimeout time.Duration
	// ImmediateTx - начинать транзакции с BEGIN IMMEDIATE
	ImmediateTx bool
}

// DefaultOptions возвращает настройки для файловой базы с одним процессом-писателем.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4, // один писатель, несколько читателей
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		BusyTimeout:     5 * time.Second,
		ImmediateTx:     true,
	}
}

// NewDB открывает файловую базу с настройками по умолчанию.
func NewDB(ctx context.Context, path string) (*sql.DB, error) {
	return Open(ctx, path, DefaultOptions())
}

// NewInMemoryDB открывает in-memory базу. Пул ограничен одним соединением,
// иначе каждое соединение видит свою пустую базу.
func NewInMemoryDB(ctx context.Context) (*sql.DB, error) {
	opts := DefaultOptions()
	opts.WALMode = false // WAL не поддерживается для in-memory
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	opts.ConnMaxLifetime = 0
	return Open(ctx, MemoryPath, opts)
}

// Open открывает базу по пути path и применяет PRAGMA настройки.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if opts.WALMode {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	return db, nil
}

// buildDSN передаёт PRAGMA через параметры DSN, чтобы они применялись
// к каждому новому соединению пула.
func buildDSN(path string, opts Options) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	if opts.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ImmediateTx {
		q.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + q.Encode()
}
