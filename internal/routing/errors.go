package routing

import "errors"

// Routing errors. None of them is fatal: each is carried on a Resolution or
// Transition so callers can log and audit it.
var (
	ErrTransportFailure        = errors.New("transport failure")
	ErrRetryLimitExceeded      = errors.New("retry limit exceeded")
	ErrInvalidClassifierOutput = errors.New("invalid classifier output")
	ErrIllegalTransition       = errors.New("illegal state transition")
)
