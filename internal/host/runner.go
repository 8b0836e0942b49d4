package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cronhelper/internal/recurrence"
	"cronhelper/internal/shared"
)

// Tick runs one dispatch pass followed by RunDue. Concurrent ticks are
// serialized.
func (h *Host) Tick(ctx context.Context) error {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	dispatchErr := h.Dispatch(ctx)
	_, runErr := h.RunDue(ctx)
	return errors.Join(dispatchErr, runErr)
}

// Dispatch runs every dispatch action once. A failing action does not stop
// the others; all failures are returned joined.
func (h *Host) Dispatch(ctx context.Context) error {
	var errs []error
	for _, action := range h.hooks.dispatchActions() {
		if err := safeCall(func() error { return action(ctx) }); err != nil {
			h.logger.Error("dispatch action failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunDue fires every occurrence whose time has come and returns how many
// fired. Recurring occurrences are moved to their next slot before their
// handlers run; an occurrence that cannot be advanced is skipped so it
// never fires twice for one slot.
func (h *Host) RunDue(ctx context.Context) (int, error) {
	now := h.now().UTC().Truncate(time.Second)

	due, err := h.store.Due(ctx, now, h.batch)
	if err != nil {
		return 0, shared.Wrap(err, "load due events")
	}
	if len(due) == 0 {
		return 0, nil
	}

	schedules := h.Schedules()
	fired := 0
	for _, ev := range due {
		if err := ctx.Err(); err != nil {
			return fired, err
		}
		if err := h.advance(ctx, ev, now, schedules); err != nil {
			h.logger.Error("failed to advance event", "hook", ev.Hook, "id", ev.ID, "error", err)
			continue
		}
		h.fire(ctx, ev)
		fired++
	}
	return fired, nil
}

func (h *Host) advance(ctx context.Context, ev Event, now time.Time, schedules recurrence.Schedules) error {
	interval := ev.Interval
	if s, ok := schedules[ev.Schedule]; ok {
		interval = s.Interval
	}

	if !ev.Recurring() || interval <= 0 {
		if ev.Recurring() {
			h.logger.Warn("dropping event with unknown schedule", "hook", ev.Hook, "schedule", ev.Schedule)
		}
		return h.write(ctx, func(ctx context.Context) error { return h.store.Delete(ctx, ev.ID) })
	}

	next := NextRun(ev.Timestamp, now, interval)
	return h.write(ctx, func(ctx context.Context) error { return h.store.Reschedule(ctx, ev.ID, next) })
}

func (h *Host) fire(ctx context.Context, ev Event) {
	handlers := h.hooks.eventHandlers(ev.Hook)
	if len(handlers) == 0 {
		h.logger.Debug("event fired without handlers", "hook", ev.Hook)
		return
	}

	for _, handle := range handlers {
		start := time.Now()
		err := safeCall(func() error { return handle(ctx, ev) })
		if err != nil {
			h.logger.Error("event handler failed", "hook", ev.Hook, "error", err, "duration", time.Since(start))
			continue
		}
		h.logger.Debug("event handled", "hook", ev.Hook, "duration", time.Since(start))
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", shared.ErrInternal, r)
		}
	}()
	return fn()
}
