package retry

import "errors"

// ErrCircuitOpen is returned when the breaker rejected the operation before
// any attempt was made.
var ErrCircuitOpen = errors.New("circuit breaker open")

// recoverableError marks a failure worth retrying (timeouts, 5xx, transient
// network errors).
type recoverableError struct{ err error }

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// nonRecoverableError marks a failure that retrying cannot fix
// (authentication, malformed request, rate-limit lockout). It aborts the
// retry loop and opens the breaker immediately.
type nonRecoverableError struct{ err error }

func (e *nonRecoverableError) Error() string { return e.err.Error() }
func (e *nonRecoverableError) Unwrap() error { return e.err }

// Recoverable wraps err as retryable.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// NonRecoverable wraps err as terminal.
func NonRecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRecoverableError{err: err}
}

// IsRecoverable reports whether err may succeed on retry. Unclassified
// errors are treated as recoverable: a transient fault mislabeled terminal
// loses the event, the reverse only costs a few attempts.
func IsRecoverable(err error) bool {
	var nr *nonRecoverableError
	return !errors.As(err, &nr)
}
