// SPDX-License-Identifier: MIT

package fetch

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNoAttempts = errors.New("fetch: at least one attempt required")
	ErrAborted    = errors.New("fetch: non-retryable failure")
	ErrCoolDown   = errors.New("fetch: backoff cap reached for HTTP status failures")
	ErrExhausted  = errors.New("fetch: attempts exhausted")
)

// StatusError reports a received HTTP response with a non-success status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// TerminalError is the final result of a failed Fetch call. It wraps one of
// the sentinel errors above with the classified cause of the last attempt.
type TerminalError struct {
	Sentinel error
	Class    Class
	Status   int
	Attempts int
	Err      error // last per-attempt error
}

func (e *TerminalError) Error() string {
	msg := fmt.Sprintf("%v (class %s, %d attempt(s))", e.Sentinel, e.Class, e.Attempts)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TerminalError) Unwrap() error {
	return e.Sentinel
}
