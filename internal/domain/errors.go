package domain

import "errors"

// ErrUnauthorized means the AI capability is missing or was rejected by the
// backend. Callers route it to re-authorization instead of a retry prompt.
var ErrUnauthorized = errors.New("ai capability missing or rejected")

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// TransientError marks a failed external call the user may simply retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
