package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"cronhelper/internal/recurrence"
	"cronhelper/internal/shared"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Store struct {
		Driver      string `validate:"required,oneof=memory sqlite postgres"`
		SQLitePath  string `validate:"required_if=Driver sqlite"`
		DatabaseURL string `validate:"required_if=Driver postgres"`
		// PGMaxConns is the size of the Postgres connection pool.
		PGMaxConns int32 `validate:"gte=1,lte=200"`
	}
	Cron struct {
		// Tick is the period of the dispatch pass.
		Tick time.Duration `validate:"min=1s"`
		// Intervals in seconds of the built-in tasks.
		HeartbeatInterval   int64 `validate:"gt=0"`
		MaintenanceInterval int64 `validate:"gt=0"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/cronhost.log")

	c.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", "sqlite"))
	c.Store.SQLitePath = getenv("SQLITE_PATH", "data/cron.db")
	c.Store.DatabaseURL = os.Getenv("DATABASE_URL")

	maxConns, err := strconv.ParseInt(strings.TrimSpace(getenv("PG_MAX_CONNS", "4")), 10, 32)
	if err != nil {
		return Config{}, shared.Validationf("PG_MAX_CONNS: %v", err)
	}
	c.Store.PGMaxConns = int32(maxConns)

	tick, err := parseDuration(getenv("CRON_TICK", "60s"))
	if err != nil {
		return Config{}, shared.Validationf("CRON_TICK: %v", err)
	}
	c.Cron.Tick = tick
	c.Cron.HeartbeatInterval = recurrence.Seconds(getenv("HEARTBEAT_INTERVAL", "120"))
	c.Cron.MaintenanceInterval = recurrence.Seconds(getenv("MAINTENANCE_INTERVAL", "86400"))

	if err := validate.Struct(c); err != nil {
		return Config{}, shared.MarkKind(err, shared.KindValidation)
	}
	return c, nil
}

// parseDuration accepts Go durations ("90s", "5m") and bare numbers as seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, ok := recurrence.ParseSeconds(s); ok {
		return time.Duration(n) * time.Second, nil
	}
	d, err := cast.ToDurationE(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
