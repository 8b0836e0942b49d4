// Package scheduler drives periodic work on top of github.com/robfig/cron/v3.
//
// It accepts cron expressions with a seconds field (AddCronJob) and
// constant-delay intervals (AddEvery, built on cron.Every). Each job gets an
// overlap policy, an optional per-run timeout, panic recovery and optional
// start/finish hooks. Start, Stop and StopContext are idempotent; cancelling
// the parent context passed to NewWithContext stops the scheduler too.
//
// The application uses it to call host.Tick on a fixed cadence:
//
//	s := scheduler.NewWithContext(ctx, scheduler.Config{Logger: logger})
//	_, err := s.AddEvery(time.Minute, h.Tick, scheduler.JobOptions{
//		Name:          "cron-tick",
//		Timeout:       30 * time.Second,
//		OverlapPolicy: scheduler.SkipIfRunning,
//	})
//	s.Start()
//	defer s.Stop()
package scheduler
