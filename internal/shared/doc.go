// Package shared contains the error vocabulary used across cronhelper.
//
// Components never invent their own error types for common conditions.
// They wrap one of the sentinel errors below so that callers (the HTTP
// surface, the host runner, tests) can classify failures without knowing
// which store or component produced them:
//
//   - ErrNotFound: no pending occurrence, unknown event
//   - ErrValidation: rejected registration input or unknown recurrence
//   - ErrConflict: an occurrence for the same hook and argument key exists
//   - ErrInternal: unexpected internal state
//   - ErrTimeout: operation timed out
//   - ErrInvariantViolated: broken internal rule
//   - ErrDependencyFailure: the storage backend failed
//
// Classify with KindOf or the Is* predicates:
//
//	switch shared.KindOf(err) {
//	case shared.KindNotFound:
//	    // nothing pending
//	case shared.KindConflict:
//	    // someone else scheduled it first
//	}
//
// Adapt third-party errors with MarkKind:
//
//	if errors.Is(err, sql.ErrNoRows) {
//	    return shared.MarkKind(err, shared.KindNotFound)
//	}
//	return shared.MarkKind(err, shared.KindDependencyFailure)
//
// # Kind Priority
//
// When several kinds are present (errors.Join), KindOf reports the first in
// this order: Canceled, Timeout, NotFound, Validation, Conflict,
// DependencyFailure, Internal, InvariantViolated.
package shared
