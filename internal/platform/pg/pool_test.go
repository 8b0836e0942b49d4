package pg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronhelper/internal/shared"
)

func TestResolvePoolSettings_Defaults(t *testing.T) {
	t.Parallel()

	s, err := ResolvePoolSettings()
	require.NoError(t, err)

	assert.Equal(t, int32(4), s.MaxConns)
	assert.Equal(t, int32(1), s.MinConns)
	assert.Equal(t, 5*time.Second, s.PingTimeout)
	assert.Equal(t, "cronhost", s.AppName)
}

func TestResolvePoolSettings_Options(t *testing.T) {
	t.Parallel()

	s, err := ResolvePoolSettings(
		WithMaxConns(10),
		WithMinConns(3),
		WithPingTimeout(time.Second),
		WithAppName("cronhost-test"),
	)
	require.NoError(t, err)

	assert.Equal(t, int32(10), s.MaxConns)
	assert.Equal(t, int32(3), s.MinConns)
	assert.Equal(t, time.Second, s.PingTimeout)
	assert.Equal(t, "cronhost-test", s.AppName)
}

func TestResolvePoolSettings_MinClampedToMax(t *testing.T) {
	t.Parallel()

	s, err := ResolvePoolSettings(WithMaxConns(2), WithMinConns(5))
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.MinConns, "MinConns не должен превышать MaxConns")
}

func TestResolvePoolSettings_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  PoolOption
	}{
		{"zero max", WithMaxConns(0)},
		{"negative min", WithMinConns(-1)},
		{"zero ping timeout", WithPingTimeout(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolvePoolSettings(tt.opt)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
}

func TestNewPool_InvalidDSN(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pool, err := NewPool(ctx, "not a dsn ::")
	if err == nil {
		pool.Close()
		t.Fatal("expected error for invalid DSN")
	}
	assert.True(t, shared.IsValidation(err), "got %v", err)
}

func TestNewPool_InvalidSettings(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(context.Background(), "postgres://u:p@127.0.0.1:1/db", WithMaxConns(0))
	if err == nil {
		pool.Close()
		t.Fatal("expected error for zero pool size")
	}
	assert.True(t, shared.IsValidation(err), "got %v", err)
}

func TestNewPool_Unreachable(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(context.Background(),
		"postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1",
		WithMinConns(0), WithPingTimeout(200*time.Millisecond))
	if err == nil {
		pool.Close()
		t.Fatal("expected ping error for unreachable server")
	}
	assert.True(t, shared.IsDependencyFailure(err), "got %v", err)
}
