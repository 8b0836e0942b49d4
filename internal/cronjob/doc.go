// Package cronjob declares recurring tasks on a host cron facility.
//
// A Registrar says "run this callback every N seconds with these
// arguments". It resolves N to a recurrence label (a built-in one such as
// hourly when N matches, otherwise every_N_seconds), contributes that label
// to the host's schedule registry when it is not built in, keeps exactly one
// pending occurrence of the task scheduled and calls the callback when the
// host fires it.
//
// Construction is free of side effects; Register wires the registrar into a
// host:
//
//	type pingArgs struct{ URL string }
//
//	r, err := cronjob.New("ping_upstream", 120,
//		func(ctx context.Context, a pingArgs) error { return ping(ctx, a.URL) },
//		pingArgs{URL: "https://example.com"},
//		cronjob.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	r.Register(h) // label "every_120_seconds"
//
// Init does both in one call and resolves the label against the host's
// built-in schedules.
package cronjob
