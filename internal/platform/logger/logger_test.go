package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readLog(t *testing.T, path string) string {
	t.Helper()

	// Give some time for file writes
	time.Sleep(50 * time.Millisecond)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNew_DualOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cronhost.log")

	logger := New(Options{
		Env:          "prod",
		ConsoleLevel: "warn",
		FileLevel:    "debug",
		File:         logFile,
		App:          "cronhost",
	})
	defer func() {
		if err := Close(logger); err != nil {
			t.Errorf("Error closing logger: %v", err)
		}
	}()

	logger.Debug("tick started")
	logger.Info("event fired", slog.String("hook", "cronhost_heartbeat"))
	logger.Warn("no callback registered")

	content := readLog(t, logFile)

	for _, want := range []string{"tick started", "event fired", "no callback registered", `"level":"DEBUG"`, `"app":"cronhost"`} {
		if !strings.Contains(content, want) {
			t.Errorf("log file should contain %q", want)
		}
	}
}

func TestNew_DefaultLevels(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "default.log")

	logger := New(Options{Env: "prod", File: logFile, App: "cronhost"})
	defer func() { _ = Close(logger) }()

	logger.Debug("debug message")

	if content := readLog(t, logFile); !strings.Contains(content, "debug message") {
		t.Error("Default file level should include debug messages")
	}
}

func TestNew_ConsoleOnly(t *testing.T) {
	logger := New(Options{Env: "dev", ConsoleLevel: "info", App: "cronhost"})
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}

	// Should not panic
	logger.Info("console only message")

	if err := Close(logger); err != nil {
		t.Errorf("Close without file should be a no-op, got %v", err)
	}
}

func TestRedactingHandler(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "redacted.log")

	logger := New(Options{Env: "prod", FileLevel: "debug", File: logFile, App: "cronhost"})
	defer func() { _ = Close(logger) }()

	logger.Info("store opened",
		slog.String("dsn", "postgres://cron:hunter2@db:5432/cron"),
		slog.String("driver", "postgres"),
	)
	logger.Info("connecting", slog.String("target", "postgres://cron:s3cret@db:5432/cron"))

	content := readLog(t, logFile)

	if strings.Contains(content, "hunter2") || strings.Contains(content, "s3cret") {
		t.Error("Credentials should be redacted")
	}
	if !strings.Contains(content, "[REDACTED]") {
		t.Error("Should contain redacted placeholder for dsn key")
	}
	if !strings.Contains(content, "postgres://cron:xxxxx@db:5432/cron") {
		t.Error("URL password should be masked in free-form attributes")
	}
	if !strings.Contains(content, `"driver":"postgres"`) {
		t.Error("Non-sensitive data should not be redacted")
	}
}

func TestMaskCredentials(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		changed bool
	}{
		{"postgres://u:p@h/db", "postgres://u:xxxxx@h/db", true},
		{"postgres://u@h/db", "postgres://u@h/db", false},
		{"data/cron.db", "data/cron.db", false},
		{"every_120_seconds", "every_120_seconds", false},
	}

	for _, tt := range tests {
		got, changed := maskCredentials(tt.in)
		if got != tt.want || changed != tt.changed {
			t.Errorf("maskCredentials(%q) = (%q, %v), want (%q, %v)", tt.in, got, changed, tt.want, tt.changed)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	h1 := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})

	multi := NewMultiHandler(h1, h2)
	ctx := context.Background()

	if multi.Enabled(ctx, slog.LevelDebug) {
		t.Error("Should not be enabled for debug level")
	}
	if !multi.Enabled(ctx, slog.LevelInfo) {
		t.Error("Should be enabled for info level")
	}

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)
	if err := multi.Handle(ctx, record); err != nil {
		t.Errorf("Handle should not return error: %v", err)
	}

	if multi.WithAttrs([]slog.Attr{slog.String("key", "value")}) == nil {
		t.Error("WithAttrs should not return nil")
	}
	if multi.WithGroup("group") == nil {
		t.Error("WithGroup should not return nil")
	}
}
