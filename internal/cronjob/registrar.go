package cronjob

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cronhelper/internal/host"
	"cronhelper/internal/recurrence"
	"cronhelper/internal/shared"
)

// Callback is the typed task body.
type Callback[A any] func(ctx context.Context, args A) error

// Noop returns a callback that does nothing.
func Noop[A any]() Callback[A] {
	return func(context.Context, A) error { return nil }
}

// Host is the part of the cron facility a Registrar depends on.
type Host interface {
	OnDispatch(fn host.ActionFunc)
	AddScheduleFilter(fn recurrence.Filter)
	OnEvent(hook string, fn host.EventFunc)
	NextScheduled(ctx context.Context, hook string, args any) (time.Time, bool, error)
	ScheduleEvent(ctx context.Context, start time.Time, schedule, hook string, args any) error
	Now() time.Time
}

// builtinProvider is implemented by hosts that expose their built-in schedules.
type builtinProvider interface {
	Builtin() recurrence.Schedules
}

type options struct {
	logger  *slog.Logger
	builtin recurrence.Schedules
}

// Option configures a Registrar.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBuiltin resolves the recurrence label against s instead of
// recurrence.Builtin().
func WithBuiltin(s recurrence.Schedules) Option {
	return func(o *options) { o.builtin = s }
}

// Registrar declares one recurring task. It is immutable after New.
type Registrar[A any] struct {
	name     string
	interval int64
	callback Callback[A]
	args     A
	key      string
	label    string
	logger   *slog.Logger
}

// New validates the task and resolves its recurrence label. The name is
// trimmed; an empty name, a non-positive interval or arguments that cannot
// be JSON-encoded are rejected with a validation error. A nil callback is
// accepted; Invoke then only logs a warning.
func New[A any](name string, intervalSeconds int64, callback Callback[A], args A, opts ...Option) (*Registrar[A], error) {
	o := options{logger: slog.Default(), builtin: recurrence.Builtin()}
	for _, opt := range opts {
		opt(&o)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validationf("task name is empty")
	}
	if intervalSeconds <= 0 {
		return nil, shared.Validationf("task %s: interval must be positive, got %d", name, intervalSeconds)
	}

	key, err := host.ArgsKey(args)
	if err != nil {
		return nil, shared.Wrapf(err, "task %s", name)
	}

	label := recurrence.Resolve(o.builtin, intervalSeconds)
	return &Registrar[A]{
		name:     name,
		interval: intervalSeconds,
		callback: callback,
		args:     args,
		key:      key,
		label:    label,
		logger:   o.logger.With("task", name, "recurrence", label),
	}, nil
}

// Init creates a Registrar resolved against h's built-in schedules and
// registers it with h.
func Init[A any](h Host, name string, intervalSeconds int64, callback Callback[A], args A, opts ...Option) (*Registrar[A], error) {
	if bp, ok := h.(builtinProvider); ok {
		opts = append([]Option{WithBuiltin(bp.Builtin())}, opts...)
	}
	r, err := New(name, intervalSeconds, callback, args, opts...)
	if err != nil {
		return nil, err
	}
	r.Register(h)
	return r, nil
}

// Register hooks the registrar into h: EnsureScheduled on every dispatch
// pass, ContributeRecurrence as a schedule filter and Invoke when an
// occurrence of the task fires.
func (r *Registrar[A]) Register(h Host) {
	h.OnDispatch(func(ctx context.Context) error {
		return r.EnsureScheduled(ctx, h)
	})
	h.AddScheduleFilter(r.ContributeRecurrence)
	h.OnEvent(r.name, r.handle)

	r.logger.Debug("task registered", "interval", r.interval)
}

// Name returns the trimmed event name.
func (r *Registrar[A]) Name() string { return r.name }

// Interval returns the period in seconds.
func (r *Registrar[A]) Interval() int64 { return r.interval }

// Label returns the resolved recurrence label.
func (r *Registrar[A]) Label() string { return r.label }

// Key returns the argument key identifying this task's occurrence.
func (r *Registrar[A]) Key() string { return r.key }

// Args returns the callback arguments.
func (r *Registrar[A]) Args() A { return r.args }

// ContributeRecurrence adds the task's custom schedule to schedules. Built-in
// labels are returned untouched. The result is a new map.
func (r *Registrar[A]) ContributeRecurrence(schedules recurrence.Schedules) recurrence.Schedules {
	if recurrence.IsCanonical(r.label) {
		return schedules
	}

	out := schedules.Clone()
	out[r.label] = recurrence.Schedule{
		Interval: r.interval,
		Display:  recurrence.Display(r.interval),
	}
	return out
}

// EnsureScheduled schedules the task's occurrence starting now unless one is
// already pending. Host errors are returned as is.
func (r *Registrar[A]) EnsureScheduled(ctx context.Context, h Host) error {
	_, pending, err := h.NextScheduled(ctx, r.name, r.args)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	err = h.ScheduleEvent(ctx, h.Now(), r.label, r.name, r.args)
	if shared.IsConflict(err) {
		// Another process scheduled it between the check and the insert.
		r.logger.Debug("occurrence already scheduled")
		return nil
	}
	return err
}

// Invoke runs the callback with the task's arguments.
func (r *Registrar[A]) Invoke(ctx context.Context) error {
	if r.callback == nil {
		r.logger.Warn("task fired without a callback")
		return nil
	}
	return r.callback(ctx, r.args)
}

func (r *Registrar[A]) handle(ctx context.Context, ev host.Event) error {
	if err := shared.Invariant(ev.Hook == r.name, fmt.Sprintf("event %q routed to task %q", ev.Hook, r.name)); err != nil {
		return err
	}
	if ev.Key != r.key {
		return nil
	}
	return r.Invoke(ctx)
}
