// Package host is the single-process cron facility that recurring task
// registrars plug into.
//
// The host owns three extension points and the pending-occurrence store:
//
//   - dispatch actions, run once per dispatch pass (OnDispatch)
//   - schedule filters, applied every time the schedule registry is read
//     (AddScheduleFilter)
//   - event handlers, run when a pending occurrence of a named event comes
//     due (OnEvent)
//
// An occurrence is keyed by its event name plus an argument key, the hex
// SHA-1 of the JSON-encoded arguments. A Store keeps at most one pending
// occurrence per key.
//
// A Tick performs one dispatch pass followed by RunDue, which advances every
// due recurring occurrence to its next slot and then fires its handlers.
// Ticks are serialized; handler errors and panics are logged and never stop
// the pass.
//
// Basic usage:
//
//	h := host.New(memory.New(), host.WithLogger(logger))
//	h.OnEvent("report", func(ctx context.Context, ev host.Event) error {
//		return sendReport(ctx)
//	})
//	err := h.ScheduleEvent(ctx, time.Now(), recurrence.Hourly, "report", nil)
//	...
//	err = h.Tick(ctx)
package host
