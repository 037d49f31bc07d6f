// SPDX-License-Identifier: MIT

// Package fetch implements the retrying download engine: a pure failure
// classifier, a pure backoff policy and a single-threaded attempt loop that
// publishes successful payloads atomically.
package fetch

import "time"

// Request describes one download operation. It is immutable for the
// duration of a Fetch call.
type Request struct {
	URL         string
	Destination string
	MaxAttempts int
	BaseDelay   time.Duration
}

// Class identifies where in the transfer an attempt failed.
type Class int

const (
	// ClassTransport covers connection, DNS and TLS level failures that
	// occurred before any HTTP response was received.
	ClassTransport Class = iota
	// ClassHTTPStatus covers responses whose status code signals failure.
	ClassHTTPStatus
	// ClassLocalIO covers read/write/rename failures while consuming the
	// response body or publishing the payload.
	ClassLocalIO
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassHTTPStatus:
		return "http_status"
	case ClassLocalIO:
		return "local_io"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a single failed attempt. Successful
// attempts produce no Outcome. Never persisted.
type Outcome struct {
	Class     Class
	Status    int // HTTP status code, set when Class == ClassHTTPStatus
	Retryable bool
	Err       error
}

// Decision tells the engine what to do after a retryable failure.
type Decision struct {
	Stop  bool
	Sleep time.Duration
}
