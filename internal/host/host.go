package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cronhelper/internal/recurrence"
	"cronhelper/internal/shared"
	"cronhelper/pkg/retry"
)

// ErrInvalidSchedule is returned when an occurrence names a recurrence the
// schedule registry does not know.
var ErrInvalidSchedule = fmt.Errorf("%w: invalid schedule", shared.ErrValidation)

const defaultBatchSize = 100

// Host is the cron facility: hook registry plus pending-occurrence store.
type Host struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	builtin recurrence.Schedules
	retry   retry.Config
	batch   int

	hooks  hooks
	tickMu sync.Mutex
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

// WithBuiltin replaces the built-in schedules.
func WithBuiltin(s recurrence.Schedules) Option {
	return func(h *Host) { h.builtin = s.Clone() }
}

// WithRetry sets the retry policy for store writes.
func WithRetry(cfg retry.Config) Option {
	return func(h *Host) { h.retry = cfg }
}

// WithBatchSize limits how many due occurrences one RunDue handles.
func WithBatchSize(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.batch = n
		}
	}
}

// New creates a Host on top of store.
func New(store Store, opts ...Option) *Host {
	h := &Host{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		builtin: recurrence.Builtin(),
		retry: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   50 * time.Millisecond,
			MaxDelay:       time.Second,
			JitterStrategy: retry.JitterDecorrelated,
		},
		batch: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "host")
	return h
}

// OnDispatch registers fn to run on every dispatch pass.
func (h *Host) OnDispatch(fn ActionFunc) {
	h.hooks.addDispatch(fn)
}

// AddScheduleFilter registers a filter over the schedule registry.
func (h *Host) AddScheduleFilter(fn recurrence.Filter) {
	h.hooks.addFilter(fn)
}

// OnEvent registers fn to handle occurrences of hook.
func (h *Host) OnEvent(hook string, fn EventFunc) {
	h.hooks.addEvent(hook, fn)
}

// Now returns the host's current time.
func (h *Host) Now() time.Time {
	return h.now()
}

// Builtin returns a copy of the built-in schedules.
func (h *Host) Builtin() recurrence.Schedules {
	return h.builtin.Clone()
}

// Schedules returns the built-in schedules passed through every filter.
func (h *Host) Schedules() recurrence.Schedules {
	return recurrence.Apply(h.builtin, h.hooks.scheduleFilters()...)
}

// Store returns the underlying store.
func (h *Host) Store() Store {
	return h.store
}

// NextScheduled reports when the pending occurrence of hook with args runs.
func (h *Host) NextScheduled(ctx context.Context, hook string, args any) (time.Time, bool, error) {
	key, err := ArgsKey(args)
	if err != nil {
		return time.Time{}, false, err
	}

	ev, err := h.store.Pending(ctx, hook, key)
	if err != nil {
		if shared.IsNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, shared.Wrapf(err, "look up %s", hook)
	}
	return ev.Timestamp, true, nil
}

// ScheduleEvent stores a recurring occurrence of hook starting at start.
// Returns ErrInvalidSchedule for unknown recurrences and shared.ErrConflict
// when an occurrence with the same arguments is already pending.
func (h *Host) ScheduleEvent(ctx context.Context, start time.Time, schedule, hook string, args any) error {
	s, ok := h.Schedules()[schedule]
	if !ok || s.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidSchedule, schedule)
	}

	raw, key, err := EncodeArgs(args)
	if err != nil {
		return err
	}

	ev := Event{
		ID:        uuid.NewString(),
		Hook:      hook,
		Key:       key,
		Args:      raw,
		Timestamp: start.UTC().Truncate(time.Second),
		Schedule:  schedule,
		Interval:  s.Interval,
	}
	if err := h.write(ctx, func(ctx context.Context) error { return h.store.Insert(ctx, ev) }); err != nil {
		return shared.Wrapf(err, "schedule %s", hook)
	}

	h.logger.Info("event scheduled", "hook", hook, "schedule", schedule, "next_run", ev.Timestamp, "key", key)
	return nil
}

// Unschedule removes the pending occurrence of hook with the given argument key.
func (h *Host) Unschedule(ctx context.Context, hook, key string) error {
	ev, err := h.store.Pending(ctx, hook, key)
	if err != nil {
		return shared.Wrapf(err, "unschedule %s", hook)
	}
	if err := h.write(ctx, func(ctx context.Context) error { return h.store.Delete(ctx, ev.ID) }); err != nil {
		return shared.Wrapf(err, "unschedule %s", hook)
	}
	h.logger.Info("event unscheduled", "hook", hook, "key", key)
	return nil
}

// Events lists every pending occurrence.
func (h *Host) Events(ctx context.Context) ([]Event, error) {
	return h.store.List(ctx)
}

// write retries fn while the store reports dependency failures.
func (h *Host) write(ctx context.Context, fn retry.RetryableFunc) error {
	cfg := h.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		h.logger.Warn("store write failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	}
	err := retry.DoWithRetryable(ctx, cfg, fn, shared.IsDependencyFailure)

	var exceeded *retry.RetriesExceededError
	if errors.As(err, &exceeded) {
		return exceeded.LastError
	}
	return err
}
