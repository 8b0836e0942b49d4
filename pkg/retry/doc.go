// Package retry runs an operation with exponential backoff and jitter.
//
// The host uses it around storage writes so that a briefly locked SQLite
// file or a dropped Postgres connection does not lose a scheduling pass:
//
//	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
//	    return store.Reschedule(ctx, id, next)
//	}, shared.IsDependencyFailure)
//
// Configuration:
//
//	cfg := retry.Config{
//	    MaxAttempts:    5,
//	    InitialDelay:   50 * time.Millisecond,
//	    MaxDelay:       time.Second,
//	    JitterStrategy: retry.JitterDecorrelated,
//	    OnRetry: func(attempt int, err error, delay time.Duration) {
//	        logger.Warn("retrying", "attempt", attempt, "error", err)
//	    },
//	}
//
// Non-retryable errors are returned unchanged. When attempts run out the
// result is a *RetriesExceededError that unwraps to the last error, so
// errors.Is and error classification keep working.
package retry
