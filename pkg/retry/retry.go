// Package retry wraps fallible operations in an exponential-backoff policy.
// Errors carry a structured Kind so callers and the retry loop branch on a
// type instead of sniffing message substrings.
package retry

import (
	"context"
	"errors"
	"time"
)

// Kind classifies an error for retry decisions.
type Kind int

const (
	// KindUnknown covers unclassified failures; never retried.
	KindUnknown Kind = iota
	// KindTransient marks network-flavored failures (timeouts, connection
	// resets, 5xx responses); retried until the policy budget is exhausted.
	KindTransient
	// KindPermission marks auth/permission failures; never retried, surfaced
	// distinctly so the caller can suggest a config fix instead of "try again".
	KindPermission
	// KindInvalidInput marks malformed-request failures; never retried.
	KindInvalidInput
)

// Error attaches a Kind to an underlying error.
type Error struct {
	ErrKind Kind
	Err     error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Classify wraps err with the given kind. A nil err returns nil.
func Classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{ErrKind: kind, Err: err}
}

// Transient is shorthand for Classify(KindTransient, err).
func Transient(err error) error { return Classify(KindTransient, err) }

// Permission is shorthand for Classify(KindPermission, err).
func Permission(err error) error { return Classify(KindPermission, err) }

// KindOf extracts the Kind from an error chain, defaulting to KindUnknown.
// Context cancellation is treated as transient so that an exhausted deadline
// inside a single attempt does not mask itself as a fatal failure.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.ErrKind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// Policy holds the retry budget for one class of operation.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// The two policies used by the pipeline: remote generation calls get a wider
// budget with a shorter base delay than storage uploads.
var (
	Generation = Policy{Attempts: 5, BaseDelay: 1 * time.Second}
	Storage    = Policy{Attempts: 3, BaseDelay: 2 * time.Second}
)

// Do runs op under the policy. Transient failures are retried after
// BaseDelay * 2^attempt (pure exponential backoff, no jitter); any other
// failure is returned on first occurrence. The error of the last attempt is
// returned when the budget runs out, re-signaled as-is rather than swallowed.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == p.Attempts-1 {
			return lastErr
		}
		delay := p.BaseDelay << attempt
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a result.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
