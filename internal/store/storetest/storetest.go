// Package storetest holds the behaviour every host.Store must share.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronhelper/internal/host"
	"cronhelper/internal/shared"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) host.Store

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func event(t *testing.T, hook string, args any, at time.Time) host.Event {
	t.Helper()
	raw, key, err := host.EncodeArgs(args)
	require.NoError(t, err)
	return host.Event{
		ID:        uuid.NewString(),
		Hook:      hook,
		Key:       key,
		Args:      raw,
		Timestamp: at,
		Schedule:  "every_60_seconds",
		Interval:  60,
	}
}

// Run exercises newStore against the host.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndPending", func(t *testing.T) { testInsertAndPending(t, newStore(t)) })
	t.Run("PendingMissing", func(t *testing.T) { testPendingMissing(t, newStore(t)) })
	t.Run("InsertDuplicate", func(t *testing.T) { testInsertDuplicate(t, newStore(t)) })
	t.Run("Due", func(t *testing.T) { testDue(t, newStore(t)) })
	t.Run("Reschedule", func(t *testing.T) { testReschedule(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("ConcurrentInsert", func(t *testing.T) { testConcurrentInsert(t, newStore(t)) })
}

func testInsertAndPending(t *testing.T, s host.Store) {
	ctx := context.Background()
	ev := event(t, "report", map[string]int{"n": 1}, base)
	ev.Schedule = "hourly"
	ev.Interval = 3600

	require.NoError(t, s.Insert(ctx, ev))

	got, err := s.Pending(ctx, "report", ev.Key)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Hook, got.Hook)
	assert.Equal(t, ev.Key, got.Key)
	assert.JSONEq(t, string(ev.Args), string(got.Args))
	assert.True(t, ev.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", ev.Timestamp, got.Timestamp)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
	assert.Equal(t, "hourly", got.Schedule)
	assert.Equal(t, int64(3600), got.Interval)
}

func testPendingMissing(t *testing.T, s host.Store) {
	_, err := s.Pending(context.Background(), "nope", "key")
	assert.True(t, shared.IsNotFound(err), "got %v", err)
}

func testInsertDuplicate(t *testing.T, s host.Store) {
	ctx := context.Background()
	first := event(t, "sync", "eu", base)
	require.NoError(t, s.Insert(ctx, first))

	second := event(t, "sync", "eu", base.Add(time.Hour))
	err := s.Insert(ctx, second)
	assert.True(t, shared.IsConflict(err), "got %v", err)

	t.Run("other args are independent", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, event(t, "sync", "us", base)))
	})
	t.Run("other hook is independent", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, event(t, "backup", "eu", base)))
	})
}

func testDue(t *testing.T, s host.Store) {
	ctx := context.Background()
	late := event(t, "a", 1, base.Add(-time.Minute))
	onTime := event(t, "b", 2, base)
	future := event(t, "c", 3, base.Add(time.Second))
	for _, ev := range []host.Event{future, onTime, late} {
		require.NoError(t, s.Insert(ctx, ev))
	}

	due, err := s.Due(ctx, base, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, late.ID, due[0].ID, "oldest first")
	assert.Equal(t, onTime.ID, due[1].ID)

	limited, err := s.Due(ctx, base, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, late.ID, limited[0].ID)

	none, err := s.Due(ctx, base.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testReschedule(t *testing.T, s host.Store) {
	ctx := context.Background()
	ev := event(t, "a", nil, base)
	require.NoError(t, s.Insert(ctx, ev))

	next := base.Add(5 * time.Minute)
	require.NoError(t, s.Reschedule(ctx, ev.ID, next))

	got, err := s.Pending(ctx, "a", ev.Key)
	require.NoError(t, err)
	assert.True(t, next.Equal(got.Timestamp))

	due, err := s.Due(ctx, base, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	err = s.Reschedule(ctx, uuid.NewString(), next)
	assert.True(t, shared.IsNotFound(err), "got %v", err)
}

func testDelete(t *testing.T, s host.Store) {
	ctx := context.Background()
	ev := event(t, "a", []string{"x"}, base)
	require.NoError(t, s.Insert(ctx, ev))

	require.NoError(t, s.Delete(ctx, ev.ID))

	_, err := s.Pending(ctx, "a", ev.Key)
	assert.True(t, shared.IsNotFound(err))

	err = s.Delete(ctx, ev.ID)
	assert.True(t, shared.IsNotFound(err), "got %v", err)

	t.Run("key is free again", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, event(t, "a", []string{"x"}, base)))
	})
}

func testList(t *testing.T, s host.Store) {
	ctx := context.Background()

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	second := event(t, "b", nil, base.Add(time.Minute))
	first := event(t, "a", nil, base)
	require.NoError(t, s.Insert(ctx, second))
	require.NoError(t, s.Insert(ctx, first))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	var args any
	assert.NoError(t, json.Unmarshal(all[0].Args, &args))
}

func testConcurrentInsert(t *testing.T, s host.Store) {
	ctx := context.Background()
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	events := make([]host.Event, n)
	for i := range events {
		events[i] = event(t, "race", "same", base.Add(time.Duration(i)*time.Second))
	}

	for i, ev := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(ctx, ev)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case shared.IsConflict(err):
				conflicts++
			default:
				t.Errorf("insert %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok, fmt.Sprintf("conflicts=%d", conflicts))
	assert.Equal(t, n-1, conflicts)
}
